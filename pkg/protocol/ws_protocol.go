package protocol

// 推送消息类型
const (
	TypeVersions = "versions" // 版本目录变化 (上传/删除/切换最新)
	TypeStats    = "stats"    // 下载汇总变化
)

// WSMessage 推送给管理后台的消息
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
