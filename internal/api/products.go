package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"cdrive/internal/domain"
)

// PlaceholderImage is served when a product has no reachable image.
const PlaceholderImage = "/placeholder.svg"

// Image is an uploaded product picture.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	data, err := c.getJSON(ctx, "/products")
	if err != nil {
		return nil, err
	}
	return domain.DecodeProducts(data)
}

func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, ErrMissingID
	}
	data, err := c.getJSON(ctx, "/products/"+url.PathEscape(id))
	if err != nil {
		return domain.Product{}, err
	}
	raw, err := domain.DecodeObject(data)
	if err != nil {
		return domain.Product{}, err
	}
	return domain.NormalizeProduct(raw), nil
}

// CreateProduct uploads a new car. adminID may be empty.
func (c *Client) CreateProduct(ctx context.Context, draft domain.Product, img *Image, adminID string) (domain.Product, error) {
	return c.sendProduct(ctx, http.MethodPost, "/products", draft, img, adminID)
}

func (c *Client) UpdateProduct(ctx context.Context, id string, draft domain.Product, img *Image, adminID string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, ErrMissingID
	}
	return c.sendProduct(ctx, http.MethodPut, "/products/"+url.PathEscape(id), draft, img, adminID)
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "/products/" + url.PathEscape(id)})
	return err
}

func (c *Client) sendProduct(ctx context.Context, method, path string, draft domain.Product, img *Image, adminID string) (domain.Product, error) {
	if adminID != "" && draft.AddedBy == "" {
		draft.AddedBy = adminID
	}
	body, ctype, err := productForm(draft, img, adminID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("encode product: %w", err)
	}
	var hdr http.Header
	if adminID != "" {
		hdr = http.Header{"X-Admin-Id": []string{adminID}}
	}
	data, err := c.do(ctx, request{method: method, path: path, body: body, contentType: ctype, header: hdr})
	if err != nil {
		return domain.Product{}, err
	}
	// Some backends answer 201/204 with no body.
	if len(bytes.TrimSpace(data)) == 0 {
		return draft, nil
	}
	raw, err := domain.DecodeObject(data)
	if err != nil {
		return draft, nil
	}
	return domain.NormalizeProduct(raw), nil
}

func productForm(draft domain.Product, img *Image, adminID string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	meta, err := json.Marshal(draft)
	if err != nil {
		return nil, "", err
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="product"`)
	h.Set("Content-Type", "application/json")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(meta); err != nil {
		return nil, "", err
	}

	if img != nil && len(img.Data) > 0 {
		name := img.Filename
		if name == "" {
			name = "image"
		}
		ct := img.ContentType
		if ct == "" {
			ct = http.DetectContentType(img.Data)
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="imageFile"; filename=%q`, name))
		h.Set("Content-Type", ct)
		fw, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(img.Data); err != nil {
			return nil, "", err
		}
	}

	if adminID != "" {
		if err := mw.WriteField("adminId", adminID); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}

// ImageURL is the preferred image location for p.
func (c *Client) ImageURL(p domain.Product) string {
	if p.ID != "" {
		return c.base + "/products/" + url.PathEscape(p.ID) + "/image"
	}
	if p.ImageName != "" {
		return c.staticImageURL(p.ImageName)
	}
	return PlaceholderImage
}

func (c *Client) staticImageURL(name string) string {
	return c.root + "/images/" + url.PathEscape(name)
}

// ResolveImage probes the image endpoint, then the static image path, and
// returns the first reachable URL or PlaceholderImage.
func (c *Client) ResolveImage(ctx context.Context, p domain.Product) string {
	if p.ID != "" {
		path := "/products/" + url.PathEscape(p.ID) + "/image"
		if _, err := c.do(ctx, request{method: http.MethodGet, path: path}); err == nil {
			return c.base + path
		}
	}
	if p.ImageName != "" {
		path := "/images/" + url.PathEscape(p.ImageName)
		if _, err := c.do(ctx, request{method: http.MethodGet, base: c.root, path: path}); err == nil {
			return c.root + path
		}
	}
	return PlaceholderImage
}
