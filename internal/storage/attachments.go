package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store — внешнее файловое хранилище. Сервис гоняет только ссылки (ключи),
// в содержимое файлов не заглядывает.
type Store interface {
	Upload(ctx context.Context, name string, data []byte) (key string, err error)
	Delete(ctx context.Context, key string) error
}

// Client — HTTP-клиент к хранилищу вложений.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Upload(ctx context.Context, name string, data []byte) (string, error) {
	key := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/objects/%s?name=%s", c.BaseURL, key, name), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload %s: http %d: %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return key, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/objects/"+key, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete %s: http %d: %s", key, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Null — заглушка на случай, когда хранилище не настроено: ключи выдаём,
// байты никуда не деваем. Годится для локальной разработки и тестов.
type Null struct{}

func (Null) Upload(_ context.Context, _ string, _ []byte) (string, error) {
	return uuid.NewString(), nil
}

func (Null) Delete(_ context.Context, _ string) error { return nil }
