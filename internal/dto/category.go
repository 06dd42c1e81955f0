package dto

import (
	"time"

	"github.com/faithledger/donation_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateCategoryRequest defines the data needed to create a reporting
// category.
type CreateCategoryRequest struct {
	Name            string          `json:"name" binding:"required,max=100"`
	Description     string          `json:"description"`
	DefaultLineItem domain.LineItem `json:"defaultLineItem" binding:"required"`
	IsTaxDeductible bool            `json:"isTaxDeductible"`
	DisplayOrder    int             `json:"displayOrder" binding:"required,gt=0"`
}

// UpdateCategoryRequest defines the metadata fields that may change on a
// category. Statistics are never writable here.
type UpdateCategoryRequest struct {
	Name            *string          `json:"name" binding:"omitempty,max=100"`
	Description     *string          `json:"description"`
	DefaultLineItem *domain.LineItem `json:"defaultLineItem"`
	IsTaxDeductible *bool            `json:"isTaxDeductible"`
	DisplayOrder    *int             `json:"displayOrder" binding:"omitempty,gt=0"`
}

// CategoryStatisticsResponse mirrors the running totals of a category.
type CategoryStatisticsResponse struct {
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	DonationCount    int64           `json:"donationCount"`
	AverageDonation  decimal.Decimal `json:"averageDonation"`
	CurrentYearTotal decimal.Decimal `json:"currentYearTotal"`
	LastYearTotal    decimal.Decimal `json:"lastYearTotal"`
	LastDonationDate *time.Time      `json:"lastDonationDate,omitempty"`
}

// CategoryResponse defines the data returned for a category.
type CategoryResponse struct {
	CategoryID      string                     `json:"categoryID"`
	Name            string                     `json:"name"`
	Description     string                     `json:"description,omitempty"`
	DefaultLineItem domain.LineItem            `json:"defaultLineItem"`
	IsTaxDeductible bool                       `json:"isTaxDeductible"`
	IsActive        bool                       `json:"isActive"`
	DisplayOrder    int                        `json:"displayOrder"`
	Statistics      CategoryStatisticsResponse `json:"statistics"`
	CreatedAt       time.Time                  `json:"createdAt"`
	LastUpdatedAt   time.Time                  `json:"lastUpdatedAt"`
}

// ToCategoryResponse converts a domain.Category to its response DTO.
func ToCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{
		CategoryID:      c.CategoryID,
		Name:            c.Name,
		Description:     c.Description,
		DefaultLineItem: c.DefaultLineItem,
		IsTaxDeductible: c.IsTaxDeductible,
		IsActive:        c.IsActive,
		DisplayOrder:    c.DisplayOrder,
		Statistics: CategoryStatisticsResponse{
			TotalAmount:      c.Statistics.TotalAmount,
			DonationCount:    c.Statistics.DonationCount,
			AverageDonation:  c.Statistics.AverageDonation,
			CurrentYearTotal: c.Statistics.CurrentYearTotal,
			LastYearTotal:    c.Statistics.LastYearTotal,
			LastDonationDate: c.Statistics.LastDonationDate,
		},
		CreatedAt:     c.CreatedAt,
		LastUpdatedAt: c.LastUpdatedAt,
	}
}

// ToCategoryResponses converts a slice of categories to response DTOs.
func ToCategoryResponses(categories []domain.Category) []CategoryResponse {
	responses := make([]CategoryResponse, len(categories))
	for i := range categories {
		responses[i] = ToCategoryResponse(&categories[i])
	}
	return responses
}
