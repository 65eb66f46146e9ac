package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

const (
	fcmScope   = "https://www.googleapis.com/auth/firebase.messaging"
	fcmBaseURL = "https://fcm.googleapis.com"
)

// FCM sends notifications to Android and iOS devices through the Firebase
// Cloud Messaging HTTP v1 API.
type FCM struct {
	client   *http.Client
	endpoint string
}

// NewFCM creates an FCM sender authenticated with a service account file.
func NewFCM(ctx context.Context, credentialsFile, projectID string) (*FCM, error) {
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read fcm credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("parse fcm credentials: %w", err)
	}
	return NewFCMWithClient(oauth2.NewClient(ctx, creds.TokenSource), fcmBaseURL, projectID), nil
}

// NewFCMWithClient creates an FCM sender using an already authorized client.
func NewFCMWithClient(client *http.Client, baseURL, projectID string) *FCM {
	return &FCM{
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/") + "/v1/projects/" + projectID + "/messages:send",
	}
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *fcmAndroid       `json:"android,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority string `json:"priority"`
}

type fcmError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

// Send delivers n to the registration token of device.
func (s *FCM) Send(ctx context.Context, device model.UserDevice, n Notification) error {
	msg := fcmMessage{
		Token:        device.Token,
		Notification: fcmNotification{Title: n.Title, Body: n.Body},
		Data:         n.Data,
	}
	if device.Platform == model.PlatformAndroid {
		msg.Android = &fcmAndroid{Priority: "high"}
	}
	body, err := json.Marshal(fcmRequest{Message: msg})
	if err != nil {
		return fmt.Errorf("marshal fcm message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create fcm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send fcm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var fe fcmError
	_ = json.Unmarshal(raw, &fe)
	if resp.StatusCode == http.StatusNotFound || fe.Error.Status == "NOT_FOUND" {
		return ErrExpired
	}
	for _, d := range fe.Error.Details {
		if d.ErrorCode == "UNREGISTERED" {
			return ErrExpired
		}
	}
	return fmt.Errorf("fcm returned %d: %s", resp.StatusCode, fe.Error.Message)
}
