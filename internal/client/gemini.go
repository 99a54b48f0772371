package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/pkg/errors"

	"ecoretail/internal/misc"
)

var ErrGemini = errors.New("Gemini error")

const geminiCacheTTL = 1 * time.Hour

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GeminiGenerateText sends the prompt to the generative-text provider and
// returns the raw reply text. Replies are cached in Redis keyed by prompt
// hash: identical prompts (same product name, same route) come in bursts and
// the provider is both slow and rate limited.
func (c Client) GeminiGenerateText(ctx context.Context, prompt string, useCache bool) (string, error) {
	promptHash := sha256.Sum256([]byte(prompt))
	cacheKey := "GGT-" + hex.EncodeToString(promptHash[:])
	if useCache && c.Redis != nil {
		cached, err := c.Redis.Get(ctx, cacheKey).Result()
		if err == nil {
			c.Logger.Infof("GeminiGenerateText: Cache found, key: %s", cacheKey)
			return cached, nil
		}
		if err != redis.Nil {
			c.Logger.Errorf("GeminiGenerateText: Error getting Redis cache with key: %s, err: %v", cacheKey, err)
		}
	}

	reqBody, err := json.Marshal(geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", errors.Wrapf(err, "GeminiGenerateText: error marshalling request for prompt: %s", misc.StringLimit(prompt, 200))
	}

	apiURL := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/gemini-1.5-flash:generateContent?key=%s",
		c.GeminiAPIKey)
	req, err := newRequest(http.MethodPost, apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", errors.Wrap(err, "GeminiGenerateText: error creating HTTP request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	c.Logger.Debugf("GeminiGenerateText: Sending prompt: %s", misc.StringLimit(prompt, 200))
	resp, err := c.Do(req)
	if err != nil {
		return "", errors.Wrapf(ErrGemini, "error doing request, err: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(http.MaxBytesReader(nil, resp.Body, 300*1024))
	if err != nil {
		return "", errors.Wrapf(ErrGemini, "error reading response body, status: %s, err: %v", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrapf(ErrGemini, "status: %s, body:\n%s", resp.Status, misc.BytesLimit(body, 2000))
	}

	geminiResp := geminiGenerateResponse{}
	if err = json.Unmarshal(body, &geminiResp); err != nil {
		return "", errors.Wrapf(ErrGemini, "error unmarshalling response body:\n%s,\nerr: %v", misc.BytesLimit(body, 2000), err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", errors.Wrapf(ErrGemini, "no candidates in response body:\n%s", misc.BytesLimit(body, 2000))
	}
	text := geminiResp.Candidates[0].Content.Parts[0].Text

	if useCache && c.Redis != nil {
		if err = c.Redis.Set(ctx, cacheKey, text, geminiCacheTTL).Err(); err != nil {
			c.Logger.Errorf("GeminiGenerateText: Error setting Redis cache with key: %s, err: %v", cacheKey, err)
		}
	}
	return text, nil
}
