package bid

import "github.com/shopspring/decimal"

var (
	minIncrementRate = decimal.New(5, -2)  // 5%
	midIncrementRate = decimal.New(10, -2) // 10%
	maxIncrementRate = decimal.New(20, -2) // 20%
)

// ceilRate returns ceil(amount * rate) using exact decimal arithmetic
func ceilRate(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Ceil().IntPart()
}

// MinBid returns the lowest legal next bid over current
func MinBid(current int64) int64 {
	return current + ceilRate(current, minIncrementRate)
}

// Increments returns the quick-select bid amounts for current, lowest first
func Increments(current int64) []int64 {
	lowest := MinBid(current)
	return []int64{
		lowest,
		lowest + ceilRate(current, midIncrementRate),
		lowest + ceilRate(current, maxIncrementRate),
	}
}
