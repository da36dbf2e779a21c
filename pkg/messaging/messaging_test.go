package messaging

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterpartyReturnsTheOtherParticipant(t *testing.T) {
	assert.Equal(t, "user-b", counterparty("user-a", "user-b", "user-a"))
	assert.Equal(t, "user-a", counterparty("user-a", "user-b", "user-b"))
}

func TestKeysReturnsAllSetMembers(t *testing.T) {
	set := map[string]bool{"a": true, "b": true, "c": true}
	out := keys(set)
	sort.Strings(out)
	assert.Equal(t, []string{"a", "b", "c"}, out)
}

func TestKeysOnEmptySetReturnsEmptySlice(t *testing.T) {
	out := keys(map[string]bool{})
	assert.Empty(t, out)
}

func TestPreviewLeavesShortContentUnchanged(t *testing.T) {
	assert.Equal(t, "hello", preview("hello"))
}

func TestPreviewTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("a", previewLength+50)
	got := preview(long)
	assert.Len(t, []rune(got), previewLength)
	assert.Equal(t, strings.Repeat("a", previewLength), got)
}

func TestCacheKeyIsNamespacedPerUser(t *testing.T) {
	assert.Equal(t, "conv:list:user-42", cacheKey("user-42"))
	assert.NotEqual(t, cacheKey("user-1"), cacheKey("user-2"))
}
