package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServer_StatusReflectsReadiness(t *testing.T) {
	s := New(0)

	st := s.currentStatus()
	assert.Equal(t, "not_ready", st.Status)

	s.SetReady(true)
	assert.Equal(t, "ok", s.currentStatus().Status)

	s.SetReady(false)
	assert.Equal(t, "not_ready", s.currentStatus().Status)
}

func TestServer_CountsInvocations(t *testing.T) {
	s := New(0)
	s.RecordInvocation(true)
	s.RecordInvocation(true)
	s.RecordInvocation(false)

	st := s.currentStatus()
	assert.Equal(t, int64(3), st.Processed)
	assert.Equal(t, int64(2), st.Succeeded)
	assert.Equal(t, int64(1), st.Failed)
}
