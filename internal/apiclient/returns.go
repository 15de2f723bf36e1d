package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"packloop-client/internal/domain"
)

// GetDamagePolicy fetches the issue→points table. Loaded once per return
// session; only used for the local preview, never authoritative.
func (c *Client) GetDamagePolicy(ctx context.Context) (domain.DamagePolicy, error) {
	var env envelope
	if err := c.getJSON(ctx, "/business/damage-policy", nil, &env); err != nil {
		return nil, err
	}
	var entries []domain.PolicyEntry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		return nil, fmt.Errorf("unrecognized damage policy shape: %w", err)
	}
	return domain.NewDamagePolicy(entries), nil
}

// decodeReturnPreview normalizes the two check-return response layouts:
// fields nested under a "preview" key, or present directly at the top level.
func decodeReturnPreview(raw json.RawMessage) (*domain.ReturnPreview, error) {
	var nested struct {
		Preview *domain.ReturnPreview `json:"preview"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Preview != nil {
		return nested.Preview, nil
	}
	var flat domain.ReturnPreview
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("unrecognized check-return response shape: %w", err)
	}
	return &flat, nil
}

// CheckReturn runs phase one of the return protocol: it uploads the face
// images and issue tags and gets back the server's authoritative score,
// condition and temp image URLs. It performs no transaction mutation but it
// does upload, so it must only run on explicit user submission.
func (c *Client) CheckReturn(ctx context.Context, serial, note string, observations []domain.DamageObservation, images map[domain.DamageFace]io.Reader) (*domain.ReturnPreview, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("note", note); err != nil {
		return nil, err
	}
	for _, obs := range observations {
		if obs.Issue == "" {
			continue
		}
		field := fmt.Sprintf("issues[%s]", obs.Face)
		if err := writer.WriteField(field, obs.Issue); err != nil {
			return nil, err
		}
	}
	for face, reader := range images {
		if reader == nil {
			continue
		}
		part, err := writer.CreateFormFile(fmt.Sprintf("images[%s]", face), string(face)+".jpg")
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, reader); err != nil {
			return nil, fmt.Errorf("failed to buffer %s face image: %w", face, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	path := "/business/returns/" + url.PathEscape(serial) + "/check"
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &body, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := c.do(req, &env); err != nil {
		return nil, err
	}
	return decodeReturnPreview(env.Data)
}

// ConfirmReturn runs phase two: it persists the return using the values the
// server computed during the check phase. Mutating and not retry-safe; the
// caller must never auto-resubmit after an ambiguous failure.
func (c *Client) ConfirmReturn(ctx context.Context, serial string, submission domain.ReturnSubmission) (*domain.BorrowTransaction, error) {
	path := "/business/returns/" + url.PathEscape(serial) + "/confirm"
	var env envelope
	if err := c.postJSON(ctx, path, submission, &env); err != nil {
		return nil, err
	}
	var txn domain.BorrowTransaction
	if err := json.Unmarshal(env.Data, &txn); err != nil {
		return nil, fmt.Errorf("unrecognized confirm-return response shape: %w", err)
	}
	return &txn, nil
}
