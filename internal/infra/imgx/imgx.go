// Package imgx 处理剧集海报图片。
package imgx

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png" // 注册 PNG 解码器（输入不一定总是 jpeg）
)

// 海报宽高比 2:3。
const (
	posterW = 2
	posterH = 3
)

// PosterJPEG 把任意 JPEG/PNG 图片居中裁切为 2:3 的海报并编码为 JPEG（用于 poster.jpg）。
//
// 约束：
// - 输入允许是 JPEG/PNG（依赖标准库解码器）
// - 输出固定为 JPEG
// - 已是 2:3 的图片不裁切，只重新编码
// - 过宽：保留高度，水平居中取宽；过高：保留宽度，垂直居中取高
func PosterJPEG(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, errors.New("图片为空")
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}

	rect := posterRect(b)
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 92}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func posterRect(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	switch {
	case w*posterH > h*posterW:
		cw := h * posterW / posterH
		x0 := b.Min.X + (w-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	case w*posterH < h*posterW:
		ch := w * posterH / posterW
		y0 := b.Min.Y + (h-ch)/2
		return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
	default:
		return b
	}
}
