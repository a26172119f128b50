// SPDX-License-Identifier: EPL-2.0

package observe

import (
	"context"
	"testing"
)

func TestInitProvider_WithoutServer(t *testing.T) {
	mp, shutdown, err := InitProvider(context.Background(), ProviderConfig{})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordSubmit(context.Background(), "i2s", "playback")

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
