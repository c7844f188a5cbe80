package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocaplabs/claimcheck/core"
)

func TestMarshalUnmarshalID(t *testing.T) {
	id := core.ID(123456789)

	data := MarshalID(id)
	got, err := UnmarshalID(data)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestMarshalUnmarshalArticle(t *testing.T) {
	article := &core.Article{
		Id:         core.IDFromContent("headline"),
		Title:      "headline",
		Body:       "the article body",
		Label:      "Fake",
		InsertedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	data := MarshalArticle(article)
	got, err := UnmarshalArticle(data)
	require.NoError(t, err)
	assert.Equal(t, article, got)
}

func TestUnmarshalArticle_Corrupt(t *testing.T) {
	_, err := UnmarshalArticle([]byte{0xff})
	assert.Error(t, err)
}

func TestMarshalUnmarshalSessionActivity(t *testing.T) {
	activity := &core.SessionActivity{
		SessionID:  "s1",
		Requests:   7,
		LastActive: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	data := MarshalSessionActivity(activity)
	got, err := UnmarshalSessionActivity(data)
	require.NoError(t, err)
	assert.Equal(t, activity, got)
}
