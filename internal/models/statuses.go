package models

type UserRole string
type SubscriptionStatus string
type PaymentStatus string
type TeamRole string

const (
	UserRoleMember UserRole = "member"
	UserRoleAdmin  UserRole = "admin"

	// Закрытый набор статусов подписки. "Текущей" считается подписка
	// в статусе active или trialing; canceled остается в истории навсегда
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"

	TeamRoleMember TeamRole = "member"
	TeamRoleAdmin  TeamRole = "admin"
)

// ActiveSubscriptionStatuses - статусы, при которых подписка дает доступ
var ActiveSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusTrialing,
}
