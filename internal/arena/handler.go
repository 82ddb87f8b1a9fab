package arena

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/reject"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/utils"
)

type arenaHandler struct {
	arenas *arenaService
}

// RegisterRoutes mounts the arena API. auth guards every route that changes state.
func RegisterRoutes(rg *gin.RouterGroup, manager *Manager, auth gin.HandlerFunc) {
	handler := arenaHandler{
		arenas: &arenaService{manager: manager},
	}

	routes := rg.Group("/arenas")
	routes.POST("", auth, handler.createArena)
	routes.GET("", handler.getArenas)
	routes.GET("/open", handler.getOpenArenas)
	routes.GET("/games", handler.getGames)
	routes.GET("/:id", handler.getArenaById)
	routes.POST("/:id/join", auth, handler.joinArena)
	routes.GET("/:id/participants", handler.getParticipants)
	routes.GET("/:id/matches", handler.getMatches)
	routes.POST("/:id/start", auth, handler.startTournament)
	routes.POST("/:id/settle", auth, handler.settlePayout)
}

type CreateArenaRequest struct {
	Name            string       `json:"name"`
	GameType        string       `json:"gameType"`
	EntryFee        model.Amount `json:"entryFee"`
	MaxParticipants int          `json:"maxParticipants"`
}

func (h arenaHandler) createArena(c *gin.Context) {
	body := CreateArenaRequest{}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
		return
	}

	created, err := h.arenas.create(c.Request.Context(), CreateArenaConfig{
		Name:            body.Name,
		GameType:        model.GameType(strings.TrimSpace(body.GameType)),
		EntryFee:        body.EntryFee,
		MaxParticipants: body.MaxParticipants,
		CreatedBy:       utils.GetOperator(c),
	})
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h arenaHandler) getArenas(c *gin.Context) {
	page, pageErr := utils.NewPageRequest(c)
	if pageErr != nil {
		c.JSON(pageErr.Problem.Status, pageErr.Problem)
		return
	}

	var status *model.ArenaStatus
	if raw := c.Query("status"); raw != "" {
		s := model.ArenaStatus(raw)
		switch s {
		case model.ArenaOpen, model.ArenaInProgress, model.ArenaCompleted:
			status = &s
		default:
			c.JSON(http.StatusBadRequest, reject.RequestParamsProblem())
			return
		}
	}

	arenas, err := h.arenas.findAll(c.Request.Context(), status, page)
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, arenas)
}

func (h arenaHandler) getOpenArenas(c *gin.Context) {
	arenas, err := h.arenas.findOpen(c.Request.Context())
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, arenas)
}

func (h arenaHandler) getGames(c *gin.Context) {
	c.JSON(http.StatusOK, Games())
}

func (h arenaHandler) getArenaById(c *gin.Context) {
	arena, err := h.arenas.findById(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, arena)
}

type JoinArenaRequest struct {
	AgentId          string `json:"agentId"`
	PayWithRealValue bool   `json:"payWithRealValue"`
}

func (h arenaHandler) joinArena(c *gin.Context) {
	body := JoinArenaRequest{}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
		return
	}
	if strings.TrimSpace(body.AgentId) == "" {
		c.JSON(http.StatusBadRequest, reject.RequestValidationProblem("agentId is required"))
		return
	}

	participant, err := h.arenas.join(c.Request.Context(), c.Param("id"), body.AgentId, body.PayWithRealValue)
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusCreated, participant)
}

func (h arenaHandler) getParticipants(c *gin.Context) {
	participants, err := h.arenas.participants(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, participants)
}

func (h arenaHandler) getMatches(c *gin.Context) {
	matches, err := h.arenas.matches(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, matches)
}

type StartTournamentRequest struct {
	PayoutWithRealValue bool `json:"payoutWithRealValue"`
}

func (h arenaHandler) startTournament(c *gin.Context) {
	body := StartTournamentRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
			return
		}
	}

	result, err := h.arenas.runTournament(c.Request.Context(), c.Param("id"), body.PayoutWithRealValue)
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h arenaHandler) settlePayout(c *gin.Context) {
	result, err := h.arenas.settle(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(err.Problem.Status, err.Problem)
		return
	}

	c.JSON(http.StatusOK, result)
}
