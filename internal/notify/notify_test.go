package notify

import (
	"context"
	"errors"
	"io"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/oafund/internal/model"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sample() model.FundingRequest {
	return model.FundingRequest{
		Timestamp:  "2025-08-06T18:47:06.370Z",
		Email:      "author@example.edu",
		Title:      "Open\r\nThings",
		Amount:     decimal.RequireFromString("1500"),
		AuthorName: "A. Author",
		Status:     model.StatusApproved,
	}
}

func TestDisabledIsNoop(t *testing.T) {
	m := New(Config{}, quietLogger())
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send called without a host")
		return nil
	}
	assert.False(t, m.Enabled())
	assert.NoError(t, m.NotifyStatus(context.Background(), sample()))
}

func TestNotifyStatusSends(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	m := New(Config{Host: "smtp.example.edu", Username: "oa@example.edu", Password: "pw"}, quietLogger())
	m.send = func(addr string, a smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}

	require.NoError(t, m.NotifyStatus(context.Background(), sample()))
	assert.Equal(t, "smtp.example.edu:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"author@example.edu"}, gotTo)
	assert.Contains(t, gotMsg, "From: oa@example.edu\r\n")
	assert.Contains(t, gotMsg, "Subject: OA fund request APPROVED\r\n")
	assert.Contains(t, gotMsg, "Amount: 1500.00")
	assert.Contains(t, gotMsg, "Dear A. Author")
}

func TestNotifyStatusError(t *testing.T) {
	m := New(Config{Host: "smtp.example.edu", Port: 25}, quietLogger())
	m.send = func(addr string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		assert.Equal(t, "smtp.example.edu:25", addr)
		assert.Nil(t, a)
		return errors.New("connection refused")
	}
	err := m.NotifyStatus(context.Background(), sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestBuildMessageHeadersAreSingleLine(t *testing.T) {
	r := sample()
	r.Email = "x@y.z\r\nBcc: evil@example.com"
	msg := string(buildMessage("oa@example.edu", r, time.Unix(0, 0)))
	head, _, _ := strings.Cut(msg, "\r\n\r\n")
	for _, line := range strings.Split(head, "\r\n") {
		assert.False(t, strings.HasPrefix(line, "Bcc:"), "injected header: %q", line)
	}
}
