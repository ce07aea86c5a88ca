package types

// RewardType is the kind of benefit a wheel sector grants.
type RewardType string

const (
	RewardTypeCoupon       RewardType = "coupon"
	RewardTypeCashback     RewardType = "cashback"
	RewardTypeFreeShipping RewardType = "free_shipping"
	RewardTypeProduct      RewardType = "product"
	RewardTypeNoWin        RewardType = "no_win"
)

// legacy alias used by catalogs imported from the storefront plugin
const rewardTypeShippingLegacy RewardType = "shipping"

var rewardTypes = []RewardType{
	RewardTypeCoupon,
	RewardTypeCashback,
	RewardTypeFreeShipping,
	RewardTypeProduct,
	RewardTypeNoWin,
}

// Normalize maps legacy spellings onto the canonical type.
func (t RewardType) Normalize() RewardType {
	if t == rewardTypeShippingLegacy {
		return RewardTypeFreeShipping
	}
	return t
}

func (t RewardType) Valid() bool {
	n := t.Normalize()
	for _, rt := range rewardTypes {
		if rt == n {
			return true
		}
	}
	return false
}

// IsWin reports whether the type grants anything at all.
func (t RewardType) IsWin() bool {
	return t.Normalize() != RewardTypeNoWin
}

type UserRewardStatus string

const (
	UserRewardStatusActive  UserRewardStatus = "active"
	UserRewardStatusUsed    UserRewardStatus = "used"
	UserRewardStatusExpired UserRewardStatus = "expired"
	// UserRewardStatusFailed marks a grant whose external issuance did not succeed.
	UserRewardStatusFailed UserRewardStatus = "failed"
)

type CouponDiscountType string

const (
	CouponDiscountTypePercent   CouponDiscountType = "percent"
	CouponDiscountTypeFixedCart CouponDiscountType = "fixed_cart"
)

// DeliveryChannel selects how birthday invitations are sent.
type DeliveryChannel string

const (
	DeliveryChannelEmail DeliveryChannel = "email"
	DeliveryChannelSMS   DeliveryChannel = "sms"
	DeliveryChannelBoth  DeliveryChannel = "both"
)

func (c DeliveryChannel) Valid() bool {
	return c == DeliveryChannelEmail || c == DeliveryChannelSMS || c == DeliveryChannelBoth
}
