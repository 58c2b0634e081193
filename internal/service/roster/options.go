package roster

// Options 花名册解析与匹配参数
type Options struct {
	IdentityHeader  string // 学号列，默认 "Admission No"
	NameHeader      string // 姓名列，默认 "Name"
	HeaderScanLines int    // 表头搜索行数，默认 10
	SuffixLength    int    // 学号后缀匹配长度，默认 3
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		IdentityHeader:  "Admission No",
		NameHeader:      "Name",
		HeaderScanLines: 10,
		SuffixLength:    3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.IdentityHeader == "" {
		o.IdentityHeader = d.IdentityHeader
	}
	if o.NameHeader == "" {
		o.NameHeader = d.NameHeader
	}
	if o.HeaderScanLines <= 0 {
		o.HeaderScanLines = d.HeaderScanLines
	}
	if o.SuffixLength <= 0 {
		o.SuffixLength = d.SuffixLength
	}
	return o
}
