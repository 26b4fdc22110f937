package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/easytransact-backend/internal/http/handlers/common"
	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/validation"
)

// EscrowContract - операции escrow контракта.
type EscrowContract interface {
	GetUserProjects(ctx context.Context, address string) ([]models.ChainProject, error)
	GetProjectsForApproval(ctx context.Context, address string) ([]string, error)
	GetAssetInfo(ctx context.Context, projectID string) (*models.AssetInfo, error)
	CreateProject(ctx context.Context, buyer, seller string) (*models.ChainTxResult, error)
	AcceptProject(ctx context.Context, projectID string) (*models.ChainTxResult, error)
	AddFunds(ctx context.Context, projectID, amountEther string) (*models.ChainTxResult, error)
	SubmitAsset(ctx context.Context, projectID, link, instructions string) (*models.ChainTxResult, error)
	AcceptAsset(ctx context.Context, projectID string) (*models.ChainTxResult, error)
	RejectAsset(ctx context.Context, projectID string) (*models.ChainTxResult, error)
	RelayTransaction(ctx context.Context, rawTx string) (*models.ChainTxResult, error)
}

// ChainHandler отдаёт состояние escrow контракта и отправляет транзакции.
type ChainHandler struct {
	contract EscrowContract
}

func NewChainHandler(contract EscrowContract) *ChainHandler {
	return &ChainHandler{contract: contract}
}

// UserProjects GET /chain/projects?address=
func (h *ChainHandler) UserProjects(c *gin.Context) {
	address := c.Query("address")
	if err := validation.Var("address", address, "required,eth_addr"); err != nil {
		common.Fail(c, err)
		return
	}

	projects, err := h.contract.GetUserProjects(c.Request.Context(), address)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// ProjectsForApproval GET /chain/approvals?address=
func (h *ChainHandler) ProjectsForApproval(c *gin.Context) {
	address := c.Query("address")
	if err := validation.Var("address", address, "required,eth_addr"); err != nil {
		common.Fail(c, err)
		return
	}

	ids, err := h.contract.GetProjectsForApproval(c.Request.Context(), address)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_ids": ids})
}

// AssetInfo GET /chain/projects/:id/asset
func (h *ChainHandler) AssetInfo(c *gin.Context) {
	info, err := h.contract.GetAssetInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Relay POST /chain/tx
// Транзакцию подписывает кошелёк пользователя, сервис только передаёт её в сеть.
func (h *ChainHandler) Relay(c *gin.Context) {
	var req struct {
		RawTx string `json:"raw_tx" validate:"required,hexadecimal,max=262144"`
	}
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.Struct(req); err != nil {
		common.Fail(c, err)
		return
	}

	h.respondTx(c)(h.contract.RelayTransaction(c.Request.Context(), req.RawTx))
}

// CreateProject POST /chain/projects
func (h *ChainHandler) CreateProject(c *gin.Context) {
	var req struct {
		Buyer  string `json:"buyer" validate:"required,eth_addr"`
		Seller string `json:"seller" validate:"required,eth_addr"`
	}
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.Struct(req); err != nil {
		common.Fail(c, err)
		return
	}

	h.respondTx(c)(h.contract.CreateProject(c.Request.Context(), req.Buyer, req.Seller))
}

// AddFunds POST /chain/projects/:id/funds
func (h *ChainHandler) AddFunds(c *gin.Context) {
	var req struct {
		Amount string `json:"amount"`
	}
	if !common.BindJSON(c, &req) {
		return
	}
	h.respondTx(c)(h.contract.AddFunds(c.Request.Context(), c.Param("id"), req.Amount))
}

// SubmitAsset POST /chain/projects/:id/asset
func (h *ChainHandler) SubmitAsset(c *gin.Context) {
	var req struct {
		Link         string `json:"link"`
		Instructions string `json:"instructions"`
	}
	if !common.BindJSON(c, &req) {
		return
	}
	h.respondTx(c)(h.contract.SubmitAsset(c.Request.Context(), c.Param("id"), req.Link, req.Instructions))
}

// AcceptAsset POST /chain/projects/:id/accept-asset
func (h *ChainHandler) AcceptAsset(c *gin.Context) {
	h.respondTx(c)(h.contract.AcceptAsset(c.Request.Context(), c.Param("id")))
}

// RejectAsset POST /chain/projects/:id/reject-asset
func (h *ChainHandler) RejectAsset(c *gin.Context) {
	h.respondTx(c)(h.contract.RejectAsset(c.Request.Context(), c.Param("id")))
}

// AcceptProject POST /chain/projects/:id/accept
func (h *ChainHandler) AcceptProject(c *gin.Context) {
	h.respondTx(c)(h.contract.AcceptProject(c.Request.Context(), c.Param("id")))
}

func (h *ChainHandler) respondTx(c *gin.Context) func(*models.ChainTxResult, error) {
	return func(res *models.ChainTxResult, err error) {
		if err != nil {
			common.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
