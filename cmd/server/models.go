package main

import (
	"time"

	"github.com/liamcoop/ilrvalidation/model"
	"github.com/liamcoop/ilrvalidation/rules"
)

// API request and response models

// ValidateRequest is the body of a submission validation request
type ValidateRequest struct {
	CatalogVersion string         `json:"catalogVersion,omitempty" example:"1718"`
	FileName       string         `json:"fileName" example:"ILR-10006341-1718-20171001-120000-01.json"`
	Message        *model.Message `json:"message"`
}

// ValidateResponse carries the validation errors of one submission
type ValidateResponse struct {
	CorrelationID  string                  `json:"correlationId" example:"123e4567-e89b-12d3-a456-426614174000"`
	CatalogVersion string                  `json:"catalogVersion" example:"1718"`
	Errors         []rules.ValidationError `json:"errors"`
	ErrorCount     int                     `json:"errorCount" example:"3"`
	WarningCount   int                     `json:"warningCount" example:"1"`
	ValidationTime string                  `json:"validationTime" example:"2.3s"`
}

// CatalogResponse describes one loaded catalog version
type CatalogResponse struct {
	Version         string    `json:"version" example:"1718"`
	CodedRules      int       `json:"codedRules" example:"16"`
	ExpressionRules int       `json:"expressionRules" example:"2"`
	LoadedAt        time.Time `json:"loadedAt" example:"2017-10-01T10:30:00Z"`
}

// CatalogsListResponse lists the loaded catalog versions
type CatalogsListResponse struct {
	Catalogs []CatalogResponse `json:"catalogs"`
}

// CreateRuleRequest is the body for adding an expression rule to a catalog version
type CreateRuleRequest struct {
	Name       string      `json:"name" example:"ULN_90"`
	Scope      rules.Scope `json:"scope,omitempty" example:"learner"`
	Expression string      `json:"expression" example:"learner.ULN == 0"`
	Parameters []string    `json:"parameters,omitempty" example:"ULN"`
	Active     *bool       `json:"active,omitempty" example:"true"`
}

// UpdateRuleRequest is the body for changing an expression rule.
// Omitted fields keep their current value. A rule keeps its name for life;
// a name, when given, must match it.
type UpdateRuleRequest struct {
	Name       string      `json:"name,omitempty" example:"ULN_90"`
	Scope      rules.Scope `json:"scope,omitempty" example:"learner"`
	Expression string      `json:"expression,omitempty" example:"learner.ULN == 0"`
	Parameters []string    `json:"parameters,omitempty" example:"ULN"`
	Active     *bool       `json:"active,omitempty" example:"true"`
}

// RuleResponse is an expression rule in API responses
type RuleResponse struct {
	ID             string      `json:"id" example:"123e4567-e89b-12d3-a456-426614174000"`
	CatalogVersion string      `json:"catalogVersion" example:"1718"`
	Name           string      `json:"name" example:"ULN_90"`
	Scope          rules.Scope `json:"scope" example:"learner"`
	Expression     string      `json:"expression" example:"learner.ULN == 0"`
	Parameters     []string    `json:"parameters,omitempty" example:"ULN"`
	Active         bool        `json:"active" example:"true"`
	CreatedAt      time.Time   `json:"createdAt" example:"2017-10-01T10:30:00Z"`
	UpdatedAt      time.Time   `json:"updatedAt" example:"2017-10-01T10:30:00Z"`
}

// RulesListResponse lists the active expression rules of a catalog version
type RulesListResponse struct {
	Rules []RuleResponse `json:"rules"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid request body"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the health check response
type HealthResponse struct {
	Status        string   `json:"status" example:"healthy"`
	Error         string   `json:"error,omitempty"`
	Catalogs      []string `json:"catalogs,omitempty"`
	RuleFaults    int64    `json:"ruleFaults"`
	Server4xx     int64    `json:"server4xx"`
	Server5xx     int64    `json:"server5xx"`
	DatabaseCheck bool     `json:"databaseCheck"`
}

func toRuleResponse(def *rules.ExpressionDefinition) RuleResponse {
	return RuleResponse{
		ID:             def.ID,
		CatalogVersion: def.CatalogVersion,
		Name:           def.Name,
		Scope:          def.Scope,
		Expression:     def.Expression,
		Parameters:     def.Parameters,
		Active:         def.Active,
		CreatedAt:      def.CreatedAt,
		UpdatedAt:      def.UpdatedAt,
	}
}
