package game

// RewardTier pays Amount (KRW) for a finish strictly under Under seconds.
// Under == 0 marks the open-ended last tier.
type RewardTier struct {
	Under   float64 `json:"under,omitempty"`
	Amount  int     `json:"amount"`
	Message string  `json:"message"`
}

// RewardTiers is ordered fastest first.
var RewardTiers = []RewardTier{
	{Under: 6, Amount: 10000, Message: "만 원 리워드를 받을 수 있어요!"},
	{Under: 8, Amount: 5000, Message: "5천 원 리워드를 받을 수 있어요!"},
	{Under: 10, Amount: 1000, Message: "천 원 리워드를 받을 수 있어요!"},
	{Amount: 500, Message: "오백 원도 리워드를 받을 수 있어요!"},
}

// RewardFor returns the tier earned by a finish time in seconds.
func RewardFor(seconds float64) RewardTier {
	for _, t := range RewardTiers {
		if t.Under == 0 || seconds < t.Under {
			return t
		}
	}
	return RewardTiers[len(RewardTiers)-1]
}
