// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

//go:build !nats

package audit

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
)

// NewNATSPublisher reports that the binary lacks NATS support. Build with
// -tags nats to enable external audit fan-out.
func NewNATSPublisher(string) (message.Publisher, error) {
	return nil, fmt.Errorf("nats audit publisher requires the nats build tag")
}
