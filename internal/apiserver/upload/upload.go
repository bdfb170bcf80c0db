// Package upload 处理 multipart 图片上传的准入检查
//
// 每个请求最多一个图片文件（商品用 "image" 字段，头像用 "avatar" 字段），
// 只接受 PNG/JPEG，大小上限 1 MiB。不符合的请求在业务逻辑之前被拒绝。
package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxImageSize 图片大小上限
const MaxImageSize = 1 << 20 // 1 MiB

// ErrNoFile 请求未携带该字段的文件
var ErrNoFile = errors.New("no file in request")

// Image 通过准入检查的图片
type Image struct {
	Data        []byte
	ContentType string // "image/png" | "image/jpeg"
	Ext         string // ".png" | ".jpg"
}

// ReadImage 从 multipart 请求读取并校验指定字段的图片
//
// 文件缺失返回 ErrNoFile（更新接口将其视为"不换图"），
// 其他错误均为 400 级的准入失败。
func ReadImage(r *http.Request, field string) (*Image, error) {
	if err := r.ParseMultipartForm(MaxImageSize); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, ErrNoFile
		}
		return nil, fmt.Errorf("read %s field: %w", field, err)
	}
	defer file.Close()

	if header.Size > MaxImageSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", header.Size, MaxImageSize)
	}

	// 多读一个字节，防御 header.Size 与实际不符
	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("file too large (max %d bytes)", MaxImageSize)
	}
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}

	// 按内容识别类型，不信任客户端声明的 Content-Type
	contentType := http.DetectContentType(data)
	var ext string
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	default:
		return nil, fmt.Errorf("only png and jpeg allowed, got %s", contentType)
	}

	return &Image{Data: data, ContentType: contentType, Ext: ext}, nil
}
