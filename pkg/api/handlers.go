package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"airdrop-distributor/pkg/distributor"
	"airdrop-distributor/pkg/merkle"
	"airdrop-distributor/pkg/models"
	"airdrop-distributor/pkg/service"
	"airdrop-distributor/pkg/store"
)

// Handler serves the distribution HTTP API
type Handler struct {
	svc             *service.DistributionService
	signatureMaxAge time.Duration
	now             func() time.Time
	logger          *log.Logger
}

// DefaultSignatureMaxAge applies when NewHandler is given a non-positive max age
const DefaultSignatureMaxAge = 5 * time.Minute

func NewHandler(svc *service.DistributionService, signatureMaxAge time.Duration, logger *log.Logger) *Handler {
	if signatureMaxAge <= 0 {
		signatureMaxAge = DefaultSignatureMaxAge
	}
	return &Handler{
		svc:             svc,
		signatureMaxAge: signatureMaxAge,
		now:             time.Now,
		logger:          logger,
	}
}

// NewRouter returns a gin engine with every route registered
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", h.Health)
	router.GET("/distributors", h.ListDistributors)
	router.POST("/distributors", h.CreateDistributor)
	router.GET("/distributors/:address", h.GetDistributor)
	router.GET("/distributors/:address/claims/:index", h.GetClaim)
	router.POST("/distributors/:address/claims", h.Claim)

	return router
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mint": h.svc.Mint().String()})
}

func (h *Handler) ListDistributors(c *gin.Context) {
	addresses, err := h.svc.List()
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]models.DistributorResponse, 0, len(addresses))
	for _, addr := range addresses {
		status, err := h.svc.Status(addr)
		if err != nil {
			writeError(c, err)
			return
		}
		out = append(out, distributorResponse(status))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CreateDistributor(c *gin.Context) {
	var req models.InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: "bad_request"})
		return
	}

	root, err := merkle.ParseDigest(req.Root)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: "bad_request"})
		return
	}

	addr, err := h.svc.Init(c.Request.Context(), root)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.DistributorResponse{
		Address: addr.String(),
		Mint:    h.svc.Mint().String(),
		Root:    root.String(),
	})
}

func (h *Handler) GetDistributor(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}

	status, err := h.svc.Status(addr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, distributorResponse(status))
}

func (h *Handler) GetClaim(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}
	index, err := strconv.ParseUint(c.Param("index"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid index", Code: "bad_request"})
		return
	}

	claimed, err := h.svc.IsClaimed(addr, index)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := models.ClaimStatusResponse{Index: index, Claimed: claimed}
	if claimed {
		receipt, err := h.svc.Receipt(addr, index)
		if err == nil {
			r := claimResponse(receipt)
			resp.Receipt = &r
		} else if !errors.Is(err, store.ErrReceiptNotFound) {
			h.logger.Printf("WARNING: Failed to load receipt %s/%d: %v", addr, index, err)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Claim(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}

	var req models.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: "bad_request"})
		return
	}

	wallet, err := solana.PublicKeyFromBase58(req.Wallet)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid wallet", Code: "bad_request"})
		return
	}

	proof := make([]merkle.Digest, len(req.Proof))
	for i, p := range req.Proof {
		if proof[i], err = merkle.ParseDigest(p); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid proof element: " + err.Error(), Code: "bad_request"})
			return
		}
	}

	if err := checkIssuedAt(req.IssuedAt, h.now(), h.signatureMaxAge); err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error(), Code: "unauthorized"})
		return
	}
	message := ClaimMessage(addr.String(), req.Index, wallet.String(), req.Amount, req.IssuedAt)
	if err := VerifyClaim(wallet, message, req.Signature, req.SignatureFormat); err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error(), Code: "unauthorized"})
		return
	}

	receipt, err := h.svc.Claim(c.Request.Context(), addr, distributor.ClaimRequest{
		Index:     req.Index,
		Recipient: wallet,
		Amount:    req.Amount,
		Proof:     proof,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, claimResponse(*receipt))
}

func addressParam(c *gin.Context) (solana.PublicKey, bool) {
	addr, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid distributor address", Code: "bad_request"})
		return solana.PublicKey{}, false
	}
	return addr, true
}

// writeError maps domain errors to status codes
func writeError(c *gin.Context, err error) {
	var transferErr *distributor.TransferError
	switch {
	case errors.Is(err, distributor.ErrAlreadyClaimed):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error(), Code: "already_claimed"})
	case errors.Is(err, distributor.ErrInvalidProof):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error(), Code: "invalid_proof"})
	case errors.Is(err, store.ErrDistributorNotFound), errors.Is(err, store.ErrReceiptNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, store.ErrDistributorExists):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error(), Code: "already_exists"})
	case errors.Is(err, distributor.ErrTransferUnconfirmed):
		c.JSON(http.StatusGatewayTimeout, models.ErrorResponse{Error: err.Error(), Code: "transfer_unconfirmed"})
	case errors.As(err, &transferErr):
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: err.Error(), Code: "transfer_failed"})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error(), Code: "internal"})
	}
}

func distributorResponse(status service.Status) models.DistributorResponse {
	return models.DistributorResponse{
		Address: status.Address.String(),
		Mint:    status.Mint.String(),
		Root:    status.Root.String(),
		Claimed: status.Claimed,
	}
}

func claimResponse(receipt distributor.Receipt) models.ClaimResponse {
	return models.ClaimResponse{
		Success:     true,
		ReceiptID:   receipt.ID.String(),
		Destination: receipt.Transfer.Destination.String(),
		TxHash:      receipt.Transfer.Signature,
		ClaimedAt:   receipt.ClaimedAt,
	}
}
