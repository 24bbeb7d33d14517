package model

import "time"

type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "Pending"
	ReturnStatusApproved ReturnStatus = "Approved"
	ReturnStatusRejected ReturnStatus = "Rejected"
	ReturnStatusRefunded ReturnStatus = "Refunded"
)

var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusPending:  {ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusApproved: {ReturnStatusRefunded},
}

func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusPending, ReturnStatusApproved, ReturnStatusRejected, ReturnStatusRefunded:
		return true
	}
	return false
}

func (s ReturnStatus) CanTransitionTo(next ReturnStatus) bool {
	for _, to := range returnTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

type ItemCondition string

const (
	ConditionUnopened ItemCondition = "Unopened"
	ConditionOpened   ItemCondition = "Opened"
	ConditionDamaged  ItemCondition = "Damaged"
)

func (c ItemCondition) IsValid() bool {
	switch c {
	case ConditionUnopened, ConditionOpened, ConditionDamaged:
		return true
	}
	return false
}

// 返品申請。Rejected 以外は1注文につき1件まで（部分ユニークインデックス）
type ReturnRequest struct {
	ID        int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64        `gorm:"not null;index;uniqueIndex:idx_return_open_order,where:status <> 'Rejected'" json:"order_id"`
	UserID    int64        `gorm:"not null;index" json:"user_id"`
	Items     []ReturnItem `gorm:"foreignKey:ReturnRequestID" json:"items"`
	Status    ReturnStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	AdminNote string       `gorm:"type:text" json:"admin_note,omitempty"`
	CreatedAt time.Time    `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type ReturnItem struct {
	ID              int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ReturnRequestID int64         `gorm:"not null;index" json:"return_request_id"`
	ProductID       int64         `gorm:"not null" json:"product_id"`
	Size            string        `gorm:"type:varchar(50);not null" json:"size"`
	Color           string        `gorm:"type:varchar(50);not null" json:"color"`
	Quantity        int64         `gorm:"not null" json:"quantity"`
	Reason          string        `gorm:"type:text;not null" json:"reason"`
	Condition       ItemCondition `gorm:"type:varchar(20);not null" json:"condition"`
}
