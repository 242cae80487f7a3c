package weighing

// EntrySplit is the division of an entry-time gross weight between the
// primary customer and the ALM2 account. PrimaryWeight + ALM2Weight
// always reconstructs the original gross exactly.
type EntrySplit struct {
	PrimaryWeight int
	ALM2Weight    int
}

// SplitEntry computes the ALM2 split from gross weight alone (tare is 0
// at entry). The customer keeps (100-discount)% rounded to granularity;
// the remainder goes to the ALM2 twin. Rounding happens before the
// subtraction so no kilograms are lost or invented.
func SplitEntry(grossWeight, discountPercent int) EntrySplit {
	reduced := float64(grossWeight) * (1 - float64(discountPercent)/100)
	primary := roundWeight(reduced)
	return EntrySplit{
		PrimaryWeight: primary,
		ALM2Weight:    grossWeight - primary,
	}
}

// CloseSplit is the division recomputed at close time, once both gross
// and tare are known.
type CloseSplit struct {
	NewGross     int
	NewNet       int
	NewGrossALM2 int
	NewNetALM2   int
}

// SplitClose redistributes the net weight between the two linked
// records once the tare is captured. Note the complement: entry
// discounts the customer's share of the gross, close reconciles using
// the remaining (100-discount)% of the net. The asymmetry is
// intentional - entry estimates against gross, close settles against
// the real net.
func SplitClose(grossWeight, tareWeight, discountPercent int) CloseSplit {
	originalNet := grossWeight - tareWeight
	reducedNet := roundWeight(float64(originalNet) * float64(100-discountPercent) / 100)
	alm2Net := originalNet - reducedNet
	return CloseSplit{
		NewGross:     tareWeight + reducedNet,
		NewNet:       reducedNet,
		NewGrossALM2: tareWeight + alm2Net,
		NewNetALM2:   alm2Net,
	}
}

// NetWeight is the invariant net computation used after every weight
// mutation: never negative.
func NetWeight(grossWeight, tareWeight int) int {
	if grossWeight <= tareWeight {
		return 0
	}
	return grossWeight - tareWeight
}
