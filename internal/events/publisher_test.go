package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestNATSPublisherUsesPrefixedSubject(t *testing.T) {
	conn := &recordingConn{}
	publisher := NewNATSPublisher(conn, "academy:prod", zerolog.Nop())

	event := New(TypeStudentSuspended, 7, map[string]interface{}{"student_id": 3})
	require.NoError(t, publisher.Publish(context.Background(), event))

	require.Equal(t, []string{"academy.prod.remediation.suspended"}, conn.subjects)

	var decoded Event
	require.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	require.Equal(t, event.ID, decoded.ID)
	require.Equal(t, uint(7), decoded.ActorID)
	require.EqualValues(t, 3, decoded.Data["student_id"])
}

func TestNATSPublisherDefaultsPrefix(t *testing.T) {
	conn := &recordingConn{}
	publisher := NewNATSPublisher(conn, "", zerolog.Nop())

	require.NoError(t, publisher.Publish(context.Background(), New(TypeRecoveryResolved, 0, nil)))
	require.Equal(t, []string{"academy.recovery.resolved"}, conn.subjects)
}

func TestNATSPublisherReturnsConnError(t *testing.T) {
	conn := &recordingConn{err: errors.New("nats: connection closed")}
	publisher := NewNATSPublisher(conn, "academy", zerolog.Nop())

	err := publisher.Publish(context.Background(), New(TypeCapacityRelieved, 1, nil))
	require.Error(t, err)
}

func TestNATSPublisherHonoursCancelledContext(t *testing.T) {
	conn := &recordingConn{}
	publisher := NewNATSPublisher(conn, "academy", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, publisher.Publish(ctx, New(TypeStudentReinstated, 1, nil)), context.Canceled)
	require.Empty(t, conn.subjects)
}

func TestNopPublisher(t *testing.T) {
	require.NoError(t, NewNopPublisher().Publish(context.Background(), New(TypeStudentSuspended, 1, nil)))
}
