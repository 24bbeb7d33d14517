package model

import "time"

// 管理者操作・重要な状態変化の種類
type AuditAction string

const (
	AuditActionUpdateStock       AuditAction = "UPDATE_STOCK"
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	AuditActionMarkOrderPaid     AuditAction = "MARK_ORDER_PAID"
	AuditActionUpdateShipping    AuditAction = "UPDATE_SHIPPING"
	//ゲートウェイ失敗などで自動キャンセル
	AuditActionCancelOrder        AuditAction = "CANCEL_ORDER"
	AuditActionCreateCoupon       AuditAction = "CREATE_COUPON"
	AuditActionUpdateCoupon       AuditAction = "UPDATE_COUPON"
	AuditActionDeleteCoupon       AuditAction = "DELETE_COUPON"
	AuditActionUpdateReturnStatus AuditAction = "UPDATE_RETURN_STATUS"
	AuditActionUpdateUserRole     AuditAction = "UPDATE_USER_ROLE"
	AuditActionForceLogout        AuditAction = "FORCE_LOGOUT"
)

type AuditResourceType string

const (
	AuditResourceProduct AuditResourceType = "product"
	AuditResourceOrder   AuditResourceType = "order"
	AuditResourceUser    AuditResourceType = "user"
	AuditResourceCoupon  AuditResourceType = "coupon"
	AuditResourceReturn  AuditResourceType = "return"
)

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザーのID。システム操作は 0
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`

	//JSON文字列
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
