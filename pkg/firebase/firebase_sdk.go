package firebase

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

type Client struct {
	authClient *auth.Client
}

// NewClient initializes the Firebase app from the ambient Google credentials.
func NewClient(ctx context.Context) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		return nil, err
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{authClient: authClient}, nil
}

func (c *Client) VerifyIdToken(ctx context.Context, idToken string) (*auth.Token, error) {
	return c.authClient.VerifyIDToken(ctx, idToken)
}
