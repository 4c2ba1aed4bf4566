// scriptindex 脚本确认历史索引服务
//
// 子命令：
//   - serve：启动索引与 HTTP/WebSocket 接口
//   - query：离线查询某个脚本的确认历史
//   - import：从十六进制区块文件导入区块
//   - version：打印版本信息
package main

func main() {
	Execute()
}
