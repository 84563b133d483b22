package status

// 状态集合在此声明一次，所有写路径都必须经过 Valid 校验。
const (
	Applied   = "applied"
	Offer     = "offer"
	Rejected  = "rejected"
	Withdrawn = "withdrawn"
)

var validStatuses = map[string]struct{}{
	Applied:   {},
	Offer:     {},
	Rejected:  {},
	Withdrawn: {},
}

// Valid 判断给定状态是否属于封闭集合（区分大小写）。
func Valid(s string) bool {
	_, ok := validStatuses[s]
	return ok
}

// All 返回全部合法状态，顺序固定，供错误提示与测试使用。
func All() []string {
	return []string{Applied, Offer, Rejected, Withdrawn}
}
