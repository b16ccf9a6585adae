package spark2_test

import (
	"slices"
	"testing"

	"github.com/openr-go/sparkd/internal/spark2"
)

// TestFSMTransitionTable verifies every transition in the Spark2 FSM
// table against the state table in spec.md §4.1.
func TestFSMTransitionTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		state       spark2.State
		event       spark2.Event
		wantState   spark2.State
		wantChanged bool
		wantActions []spark2.Action
	}{
		{
			name:      "Idle+HelloUnidirectional->Warm",
			state:     spark2.StateIdle,
			event:     spark2.EventHelloUnidirectional,
			wantState: spark2.StateWarm, wantChanged: true,
		},
		{
			name:      "Warm+HelloUnidirectional self-loop",
			state:     spark2.StateWarm,
			event:     spark2.EventHelloUnidirectional,
			wantState: spark2.StateWarm, wantChanged: false,
		},
		{
			name:        "Warm+HelloBidirectional->Negotiate",
			state:       spark2.StateWarm,
			event:       spark2.EventHelloBidirectional,
			wantState:   spark2.StateNegotiate,
			wantChanged: true,
			wantActions: []spark2.Action{spark2.ActionArmNegotiateHold},
		},
		{
			name:        "Negotiate+Pass->Established emits UP",
			state:       spark2.StateNegotiate,
			event:       spark2.EventNegotiatePass,
			wantState:   spark2.StateEstablished,
			wantChanged: true,
			wantActions: []spark2.Action{spark2.ActionEmitUp, spark2.ActionResetHeartbeatHold},
		},
		{
			name:      "Negotiate+Fail->Warm, no DOWN emitted",
			state:     spark2.StateNegotiate,
			event:     spark2.EventNegotiateFail,
			wantState: spark2.StateWarm, wantChanged: true,
		},
		{
			name:      "Negotiate+Timeout->Warm",
			state:     spark2.StateNegotiate,
			event:     spark2.EventNegotiateTimeout,
			wantState: spark2.StateWarm, wantChanged: true,
		},
		{
			name:        "Established+HeartbeatHoldExpired->Down",
			state:       spark2.StateEstablished,
			event:       spark2.EventHeartbeatHoldExpired,
			wantState:   spark2.StateDown,
			wantChanged: true,
			wantActions: []spark2.Action{spark2.ActionEmitDown},
		},
		{
			name:        "Established+SeqWrap self-loop emits RESTARTED",
			state:       spark2.StateEstablished,
			event:       spark2.EventSeqWrap,
			wantState:   spark2.StateEstablished,
			wantChanged: false,
			wantActions: []spark2.Action{spark2.ActionEmitRestarted},
		},
		{
			name:        "Established+PeerGone->Restarting",
			state:       spark2.StateEstablished,
			event:       spark2.EventPeerGone,
			wantState:   spark2.StateRestarting,
			wantChanged: true,
			wantActions: []spark2.Action{spark2.ActionEmitRestarting, spark2.ActionArmGRHold},
		},
		{
			name:        "Restarting+FreshHello->Established emits RESTARTED",
			state:       spark2.StateRestarting,
			event:       spark2.EventGRHelloFresh,
			wantState:   spark2.StateEstablished,
			wantChanged: true,
			wantActions: []spark2.Action{spark2.ActionEmitRestarted, spark2.ActionResetHeartbeatHold},
		},
		{
			name:        "Restarting+GRHoldExpired->Down",
			state:       spark2.StateRestarting,
			event:       spark2.EventGRHoldExpired,
			wantState:   spark2.StateDown,
			wantChanged: true,
			wantActions: []spark2.Action{spark2.ActionEmitDown},
		},
		{
			name:      "Warm+InterfaceRemoved->Down, no DOWN emitted (never established)",
			state:     spark2.StateWarm,
			event:     spark2.EventInterfaceRemoved,
			wantState: spark2.StateDown, wantChanged: true,
		},
		{
			name:        "Established+InterfaceRemoved->Down emits DOWN",
			state:       spark2.StateEstablished,
			event:       spark2.EventInterfaceRemoved,
			wantState:   spark2.StateDown,
			wantChanged: true,
			wantActions: []spark2.Action{spark2.ActionEmitDown},
		},
		{
			name:        "Negotiate+LegacyHello collapses to Established",
			state:       spark2.StateNegotiate,
			event:       spark2.EventLegacyHello,
			wantState:   spark2.StateEstablished,
			wantChanged: true,
			wantActions: []spark2.Action{spark2.ActionEmitUp, spark2.ActionResetHeartbeatHold},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := spark2.ApplyEvent(tt.state, tt.event)
			if got.NewState != tt.wantState {
				t.Errorf("NewState = %v, want %v", got.NewState, tt.wantState)
			}
			if got.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", got.Changed, tt.wantChanged)
			}
			if !slices.Equal(got.Actions, tt.wantActions) {
				t.Errorf("Actions = %v, want %v", got.Actions, tt.wantActions)
			}
		})
	}
}

func TestApplyEventIgnoresUnlistedPairs(t *testing.T) {
	t.Parallel()

	got := spark2.ApplyEvent(spark2.StateIdle, spark2.EventGRHoldExpired)
	if got.Changed {
		t.Fatalf("expected no-op for unlisted (state, event) pair, got %+v", got)
	}
	if got.NewState != spark2.StateIdle {
		t.Fatalf("NewState = %v, want Idle", got.NewState)
	}
}
