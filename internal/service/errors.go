// 文件路径: internal/service/errors.go
// 模块说明: 服务层哨兵错误。上游与转换错误直接沿用 subscription / protocol 包的定义。
package service

import "errors"

var (
	// ErrUnknownFormat indicates a format value outside the supported set.
	ErrUnknownFormat = errors.New("service: unknown format / 未知格式")
	// ErrMissingDependency indicates the service was wired without a required collaborator.
	ErrMissingDependency = errors.New("service: missing dependency / 缺少依赖")
)
