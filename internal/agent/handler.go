package agent

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/utils"
)

type agentHandler struct {
	agents *Service
}

func RegisterRoutes(rg *gin.RouterGroup, service *Service, auth gin.HandlerFunc) {
	handler := agentHandler{agents: service}

	routes := rg.Group("/agents")
	routes.POST("", auth, handler.createAgent)
	routes.GET("", handler.getAgents)
	routes.GET("/leaderboard", handler.getLeaderboard)
	routes.GET("/:id", handler.getAgentById)
	routes.GET("/:id/balance", handler.getBalance)
}

type CreateAgentRequest struct {
	Name        string `json:"name"`
	Personality string `json:"personality"`
}

func (h agentHandler) createAgent(c *gin.Context) {
	body := CreateAgentRequest{}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
		return
	}

	agent, err := h.agents.create(c.Request.Context(), body.Name, body.Personality)
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusCreated, agent)
}

func (h agentHandler) getAgents(c *gin.Context) {
	page, pageErr := utils.NewPageRequest(c)
	if pageErr != nil {
		c.JSON(pageErr.Problem.Status, pageErr.Problem)
		return
	}

	agents, err := h.agents.findAll(c.Request.Context(), page)
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, agents)
}

func (h agentHandler) getLeaderboard(c *gin.Context) {
	agents, err := h.agents.leaderboard(c.Request.Context())
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, agents)
}

func (h agentHandler) getAgentById(c *gin.Context) {
	agent, err := h.agents.findById(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, agent)
}

func (h agentHandler) getBalance(c *gin.Context) {
	balance, err := h.agents.balance(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, balance)
}
