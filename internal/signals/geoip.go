// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package signals

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/oschwald/geoip2-golang"

	"github.com/authbuilder/sentinel/internal/risk"
)

// GeoIP resolves addresses against a MaxMind GeoLite2/GeoIP2 City database.
type GeoIP struct {
	reader *geoip2.Reader
}

// NewGeoIP opens the City database at path.
func NewGeoIP(path string) (*GeoIP, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database at %q: %w", path, err)
	}
	return &GeoIP{reader: reader}, nil
}

// Close releases the database.
func (g *GeoIP) Close() error { return g.reader.Close() }

// Locate resolves addr to a location. Addresses the database does not cover
// (private ranges, unallocated space) return ok=false with a nil error.
func (g *GeoIP) Locate(_ context.Context, addr netip.Addr) (risk.Location, bool, error) {
	record, err := g.reader.City(net.IP(addr.Unmap().AsSlice()))
	if err != nil {
		return risk.Location{}, false, fmt.Errorf("geoip lookup for %s: %w", addr, err)
	}

	// MaxMind returns a zero record rather than an error for unknown
	// addresses. No country and no coordinates means no usable location.
	if record.Country.IsoCode == "" && record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		return risk.Location{}, false, nil
	}

	loc := risk.Location{
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
		Country:   record.Country.IsoCode,
	}
	if name, ok := record.City.Names["en"]; ok {
		loc.City = name
	}
	return loc, true, nil
}
