package budget

// ComputeLeftover returns what remains of the day's budget after the three
// expense categories. The result is never negative: overspending is absorbed,
// not carried. No budget means nothing can be left over.
func ComputeLeftover(budget, food, savings, products Money) Money {
	return ComputeLeftoverRaw(budget, food, savings, products)
}

// ComputeLeftoverRaw is ComputeLeftover for unsanitized input. Each argument
// goes through the normalizer first, so garbage counts as zero.
func ComputeLeftoverRaw(budget, food, savings, products any) Money {
	b := NormalizeOrZero(budget)
	if !b.IsPositive() {
		return Zero
	}

	leftover := b.
		Sub(NormalizeOrZero(food)).
		Sub(NormalizeOrZero(savings)).
		Sub(NormalizeOrZero(products))

	if leftover.IsNegative() {
		return Zero
	}
	return leftover.Quantize()
}
