package ctxcore

// QueryBundle 封装流经流水线的查询。
//
// 除查询文本外还携带可选的向量表示与元数据，
// 富化阶段可以在其上追加信息。
type QueryBundle struct {
	// QueryStr 是原始查询文本。
	QueryStr string

	// Embedding 是查询的向量表示，可为空。
	Embedding []float64

	// Metadata 携带随查询流转的附加键值数据。
	Metadata map[string]interface{}
}

// NewQueryBundle 使用给定的查询文本创建 QueryBundle。
func NewQueryBundle(query string) QueryBundle {
	return QueryBundle{
		QueryStr: query,
		Metadata: make(map[string]interface{}),
	}
}

// WithQueryMetadata 返回追加了元数据的 QueryBundle 副本。
func (q QueryBundle) WithQueryMetadata(key string, value interface{}) QueryBundle {
	clone := q
	clone.Metadata = make(map[string]interface{}, len(q.Metadata)+1)
	for k, v := range q.Metadata {
		clone.Metadata[k] = v
	}
	clone.Metadata[key] = value
	return clone
}
