package model

// RosterRow 花名册中的一行：列名 -> 值
type RosterRow map[string]string

// Clone 拷贝一行
func (r RosterRow) Clone() RosterRow {
	out := make(RosterRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RosterFormat 花名册文件格式
type RosterFormat string

const (
	RosterFormatCSV  RosterFormat = "csv"
	RosterFormatXLSX RosterFormat = "xlsx"
)

// Roster 外部花名册（含表头前的说明行，导出时原样保留）
type Roster struct {
	Format    RosterFormat `json:"format"`
	SheetName string       `json:"sheetName,omitempty"`
	Prelude   []string     `json:"prelude"`
	// PreludeRows Excel 表头前的原始单元格
	PreludeRows [][]string  `json:"-"`
	Headers     []string    `json:"headers"`
	Rows        []RosterRow `json:"rows"`
}

// Collision 学号后缀同时匹配多个汇总记录
type Collision struct {
	AdmissionNo string   `json:"admissionNo"`
	Chosen      string   `json:"chosen"`
	Candidates  []string `json:"candidates"`
}

// UnmappedKey 有分数但在花名册中找不到对应列的题号
type UnmappedKey struct {
	RegNo    string `json:"regNo"`
	Question string `json:"question"`
}

// MergeReport 合并结果统计（仅用于提示，不影响合并行为）
type MergeReport struct {
	TotalRows     int           `json:"totalRows"`
	UpdatedCount  int           `json:"updatedCount"`
	MatchedRows   int           `json:"matchedRows"`
	UnmatchedRows []string      `json:"unmatchedRows"`
	Collisions    []Collision   `json:"collisions"`
	UnmappedKeys  []UnmappedKey `json:"unmappedKeys"`
}
