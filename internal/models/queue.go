package models

import (
	"strings"
	"time"
)

// Status - lifecycle of a queue entry: waiting, serving, completed, cancelled
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusServing   Status = "serving"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus normalises a status string. "served" is an alias of completed.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "waiting":
		return StatusWaiting, true
	case "serving":
		return StatusServing, true
	case "completed", "served":
		return StatusCompleted, true
	case "cancelled":
		return StatusCancelled, true
	}
	return "", false
}

// IsTerminal - nothing moves out of completed or cancelled
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ServiceType - counter service a customer queues for
type ServiceType string

const (
	ServiceDeposit    ServiceType = "deposit"
	ServiceWithdrawal ServiceType = "withdrawal"
	ServiceAccount    ServiceType = "account"
	ServiceLoan       ServiceType = "loan"
	ServiceCard       ServiceType = "card"
	ServiceOther      ServiceType = "other"
)

// ServiceTypes lists the known services with their display names.
var ServiceTypes = map[ServiceType]string{
	ServiceDeposit:    "Cash Deposit",
	ServiceWithdrawal: "Cash Withdrawal",
	ServiceAccount:    "Account Services",
	ServiceLoan:       "Loan Inquiries",
	ServiceCard:       "Card Services",
	ServiceOther:      "Other Inquiries",
}

// IsKnown reports whether the service type is one of the catalogued services.
// Unknown values are still accepted by join and stored as-is.
func (t ServiceType) IsKnown() bool {
	_, ok := ServiceTypes[t]
	return ok
}

/*
|--------------------------------------------------------------------------
| DATABASE MODEL
|--------------------------------------------------------------------------
*/
type QueueEntry struct {
	ID                string      `json:"id"`
	QueueNumber       string      `json:"queue_number"`
	Name              string      `json:"name"`
	Phone             string      `json:"phone"`
	ServiceType       ServiceType `json:"service_type"`
	Branch            string      `json:"branch"`
	Status            Status      `json:"status"`
	Position          int         `json:"position"`
	EstimatedWaitTime int         `json:"estimated_wait_time"` // minutes
	CreatedAt         time.Time   `json:"created_at"`
}

// EntryPatch - field update applied by QueueEntryStore.Update. Nil fields are left alone.
type EntryPatch struct {
	Status            *Status
	Position          *int
	EstimatedWaitTime *int
}

// Apply writes the non-nil patch fields onto e.
func (p EntryPatch) Apply(e *QueueEntry) {
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Position != nil {
		e.Position = *p.Position
	}
	if p.EstimatedWaitTime != nil {
		e.EstimatedWaitTime = *p.EstimatedWaitTime
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p EntryPatch) IsEmpty() bool {
	return p.Status == nil && p.Position == nil && p.EstimatedWaitTime == nil
}

/*
|--------------------------------------------------------------------------
| REQUEST
|--------------------------------------------------------------------------
*/
type JoinQueueRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	ServiceType string `json:"service_type"`
	Branch      string `json:"branch"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AdjustTimeRequest - priority is the new position, estimated_wait_time in minutes
type AdjustTimeRequest struct {
	Priority          *float64 `json:"priority"`
	EstimatedWaitTime *int     `json:"estimated_wait_time"`
}

type NudgeWaitRequest struct {
	Minutes int `json:"minutes"`
}

type MoveRequest struct {
	Direction string `json:"direction"` // up, down
}

/*
|--------------------------------------------------------------------------
| RESPONSE DTO
|--------------------------------------------------------------------------
*/

// TrackResponse - entry plus the fields derived from its position
type TrackResponse struct {
	QueueEntry
	TotalAhead int     `json:"total_ahead"`
	Progress   float64 `json:"progress"`
}

type ServiceStat struct {
	Service     ServiceType `json:"service"`
	Count       int         `json:"count"`
	AvgWait     int         `json:"avg_wait"`
	JoinedTotal int64       `json:"joined_total"`
}

type DashboardStats struct {
	TotalCustomers int            `json:"total_customers"`
	AvgWaitTime    int            `json:"avg_wait_time"`
	ServiceTypes   int            `json:"service_types"`
	ByStatus       map[Status]int `json:"by_status"`
	Services       []ServiceStat  `json:"services"`
}
