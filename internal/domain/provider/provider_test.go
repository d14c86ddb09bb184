package provider

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Provider
		wantErr bool
	}{
		{"valid stdio", Provider{Name: "fs", TransportKind: TransportStdio}, false},
		{"valid sse", Provider{Name: "remote-1", TransportKind: TransportSSE}, false},
		{"empty name", Provider{Name: "", TransportKind: TransportStdio}, true},
		{"bad characters", Provider{Name: "fs/remote", TransportKind: TransportStdio}, true},
		{"unknown transport", Provider{Name: "fs", TransportKind: "ws"}, true},
		{"name too long", Provider{Name: string(make([]byte, nameMaxLength+1)), TransportKind: TransportStdio}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConnected(t *testing.T) {
	p := Provider{State: StateConnected}
	if !p.Connected() {
		t.Error("expected Connected() true for StateConnected")
	}
	p.State = StateDisconnected
	if p.Connected() {
		t.Error("expected Connected() false for StateDisconnected")
	}
}
