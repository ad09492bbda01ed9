package rivers

// widthByOrder maps the integer flow-order code of a river feature to its
// stroke width. Lower order means a larger channel. Any code not listed maps
// to zero; zero-width features stay in the network rather than being dropped,
// so the intersected set is preserved in full.
var widthByOrder = map[int]float64{
	2: 18,
	3: 16,
	4: 14,
	5: 12,
	6: 10,
	7: 6,
	8: 3,
}

// WidthForOrder returns the render width for a flow-order code. Total over
// all integers; unlisted codes get the explicit default of zero.
func WidthForOrder(order int) float64 {
	if w, ok := widthByOrder[order]; ok {
		return w
	}
	return 0
}
