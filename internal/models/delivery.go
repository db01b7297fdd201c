package models

import "time"

type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// DispatchOrder is the fixed channel attempt order within one device.
var DispatchOrder = []Channel{ChannelPush, ChannelSMS, ChannelEmail}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
	DeliveryFailed    DeliveryStatus = "failed"
)

// DeliveryRecord tracks one attempt of one channel to one device for one
// alert. Created pending before the provider call, moved to sent or failed
// when the call returns. delivered/read are set later by receipt callbacks.
type DeliveryRecord struct {
	ID               string
	AlertID          string
	DeviceID         string
	Channel          Channel
	Status           DeliveryStatus
	DeliveryAttempts int
	ErrorMessage     string
	ProviderRef      string
	CreatedAt        time.Time
	SentAt           *time.Time
	DeliveredAt      *time.Time
	ReadAt           *time.Time
}

// RiskAssessment is a persisted snapshot of one evaluated sensor reading.
// Severity is empty when the score stayed below the alerting threshold.
type RiskAssessment struct {
	ID          string
	ZoneID      string
	ZoneName    string
	RiskScore   float64
	Probability *float64
	Severity    Severity
	AlertID     string
	CreatedAt   time.Time
}
