// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"strings"

	"github.com/pkg/errors"
)

// PackageType classifies a package node. The zero value means unclassified.
type PackageType int

const (
	PackageTypeUnset PackageType = iota
	Application
	Framework
	Library
	Container
	Platform
	OperatingSystem
	Device
	DeviceDriver
	Firmware
	File
	MachineLearningModel
	Data
	CryptographicAsset
)

var packageTypeNames = []string{
	Application:          "application",
	Framework:            "framework",
	Library:              "library",
	Container:            "container",
	Platform:             "platform",
	OperatingSystem:      "operating-system",
	Device:               "device",
	DeviceDriver:         "device-driver",
	Firmware:             "firmware",
	File:                 "file",
	MachineLearningModel: "machine-learning-model",
	Data:                 "data",
	CryptographicAsset:   "cryptographic-asset",
}

// ErrUnknownPackageType is returned for package type strings outside the closed set.
var ErrUnknownPackageType = errors.New("unknown package type")

// PackageTypes returns every classified package type in declaration order.
func PackageTypes() []PackageType {
	out := make([]PackageType, 0, len(packageTypeNames)-1)
	for t := Application; t <= CryptographicAsset; t++ {
		out = append(out, t)
	}
	return out
}

// ParsePackageType parses the kebab-case name of a package type, ignoring case.
func ParsePackageType(s string) (PackageType, error) {
	for t := Application; t <= CryptographicAsset; t++ {
		if strings.EqualFold(s, packageTypeNames[t]) {
			return t, nil
		}
	}
	return PackageTypeUnset, errors.Wrapf(ErrUnknownPackageType, "%q", s)
}

// String returns the kebab-case name, or "" when unset.
func (t PackageType) String() string {
	if t <= PackageTypeUnset || int(t) >= len(packageTypeNames) {
		return ""
	}
	return packageTypeNames[t]
}

// IsSet reports whether t is one of the classified values.
func (t PackageType) IsSet() bool {
	return t > PackageTypeUnset && int(t) < len(packageTypeNames)
}

func (t PackageType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *PackageType) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = PackageTypeUnset
		return nil
	}
	v, err := ParsePackageType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
