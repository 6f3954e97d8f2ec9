package handler

import (
	"log"
	"net/http"
	"strconv"

	"junyue/internal/middleware"
	"junyue/internal/models"
	"junyue/internal/repository"
	"junyue/pkg/privacy"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type TechnicianHandler struct {
	techRepo *repository.TechnicianRepository
	cipher   *privacy.Cipher
}

func NewTechnicianHandler(techRepo *repository.TechnicianRepository, cipher *privacy.Cipher) *TechnicianHandler {
	return &TechnicianHandler{techRepo: techRepo, cipher: cipher}
}

// List returns verified technician profiles for discovery.
func (h *TechnicianHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	list, err := h.techRepo.ListVerified(c.Query("city"), limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list technicians"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"technicians": list, "page": page, "limit": limit})
}

// Get returns one profile with the contact info masked for display.
func (h *TechnicianHandler) Get(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid technician id"})
		return
	}
	profile, err := h.techRepo.GetByUserID(uint(userID))
	if err != nil || !profile.IsVerified {
		c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
		return
	}
	masked := ""
	if profile.ContactInfo != "" {
		plain, err := h.cipher.Decrypt(profile.ContactInfo)
		if err != nil {
			log.Printf("[technician] decrypt contact for user=%d failed: %v", profile.UserID, err)
		} else {
			masked = privacy.Mask(plain)
		}
	}
	c.JSON(http.StatusOK, gin.H{"technician": profile, "contact_info": masked})
}

type updateProfileRequest struct {
	City         string          `json:"city" binding:"max=64"`
	Services     string          `json:"services"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
	ContactInfo  string          `json:"contact_info" binding:"max=128"`
}

// UpdateProfile lets a technician maintain their own profile. Contact info is
// encrypted before it is stored.
func (h *TechnicianHandler) UpdateProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile, err := h.techRepo.GetByUserID(userID)
	if err != nil {
		profile = &models.TechnicianProfile{UserID: userID, IsAvailable: true}
		if err := h.techRepo.Create(profile); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create profile"})
			return
		}
	}
	if req.City != "" {
		profile.City = req.City
	}
	if req.Services != "" {
		profile.Services = req.Services
	}
	if req.PricePerHour.Cmp(decimal.Zero) > 0 {
		profile.PricePerHour = req.PricePerHour.Round(2)
	}
	if req.ContactInfo != "" {
		enc, err := h.cipher.Encrypt(req.ContactInfo)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store contact info"})
			return
		}
		profile.ContactInfo = enc
	}
	if err := h.techRepo.Update(profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"technician": profile})
}

type availabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

func (h *TechnicianHandler) SetAvailability(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.techRepo.SetAvailability(userID, *req.Available); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update availability"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": *req.Available})
}
