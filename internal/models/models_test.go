package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRetentionDelta(t *testing.T) {
	assert.Equal(t, 30*time.Minute, RetentionDelta(30, TimeUnitMinutes))
	assert.Equal(t, 12*time.Hour, RetentionDelta(12, TimeUnitHours))
	assert.Equal(t, 7*24*time.Hour, RetentionDelta(7, TimeUnitDays))
	assert.Equal(t, 3*24*time.Hour, RetentionDelta(3, ""), "unknown units default to days")
}

func TestCacheUUIDs(t *testing.T) {
	documentID := uuid.New()
	version := DocumentVersion{ID: uuid.New(), DocumentID: documentID}
	page := DocumentPage{ID: uuid.New(), DocumentVersionID: version.ID, PageNumber: 1}

	assert.Equal(t, fmt.Sprintf("%s-%s", documentID, version.ID), version.CacheUUID(documentID))
	assert.Equal(t, fmt.Sprintf("%s-%s-%s", documentID, version.ID, page.ID),
		page.CacheUUID(documentID))
}

func TestSourceTypeInteractive(t *testing.T) {
	assert.True(t, SourceWebForm.Interactive())
	assert.True(t, SourceStagingFolder.Interactive())
	assert.False(t, SourceWatchFolder.Interactive())
	assert.False(t, SourcePOP3Email.Interactive())
	assert.False(t, SourceIMAPEmail.Interactive())
}
