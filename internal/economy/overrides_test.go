package economy

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		market   Override[int64]
		item     Override[int64]
		global   int64
		want     int64
		wantTier Tier
	}{
		{name: "market wins", market: Some[int64](5), item: Some[int64](3), global: 1, want: 5, wantTier: TierMarket},
		{name: "item next", market: None[int64](), item: Some[int64](3), global: 1, want: 3, wantTier: TierItem},
		{name: "global fallback", global: 1, want: 1, wantTier: TierGlobal},
		{name: "explicit zero is set", market: Some[int64](0), item: Some[int64](3), global: 1, want: 0, wantTier: TierMarket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tier := Resolve(tt.market, tt.item, tt.global)
			if got != tt.want || tier != tt.wantTier {
				t.Errorf("Resolve() = %v, %v, want %v, %v", got, tier, tt.want, tt.wantTier)
			}
		})
	}
}
