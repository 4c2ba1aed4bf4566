package scripthistory

// 脚本历史索引默认配置值
const (
	// defaultInternalPageSize 每个存储分页 1000 条
	// 原因：尾部追加只重写最后一页，1000 条压缩后仍在单个 badger value 的常规大小内
	defaultInternalPageSize uint32 = 1000

	// defaultPageCacheEnabled 默认启用分页读缓存
	defaultPageCacheEnabled = true

	// defaultPageSize 默认每页 25 条
	defaultPageSize uint32 = 25

	// defaultMinPageSize / defaultMaxPageSize 查询 page_size 的闭区间
	defaultMinPageSize uint32 = 1
	defaultMaxPageSize uint32 = 200

	// pageSizeLimit max_page_size 允许配置的上限
	pageSizeLimit uint32 = 200

	// defaultIndexSpends 默认同时索引花费方
	// 原因：历史应包含从该脚本花出的交易，而不仅是支付到该脚本的交易
	defaultIndexSpends = true

	// defaultMempoolTrackerSize 首见时间追踪容量
	defaultMempoolTrackerSize = 100000

	defaultNetwork = "mainnet"

	// defaultIndexGenesis 空索引启动时写入创世区块
	defaultIndexGenesis = true
)
