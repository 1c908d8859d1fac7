package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		binaryVersion string
		configVersion string
		expectError   bool
		errorContains string
	}{
		{name: "exact match", binaryVersion: "1.2.0", configVersion: "1.2.0"},
		{name: "binary patch higher", binaryVersion: "1.2.1", configVersion: "1.2.0"},
		{name: "config patch higher", binaryVersion: "1.2.0", configVersion: "1.2.5"},
		{name: "v prefix", binaryVersion: "v1.2.0", configVersion: "1.2.3"},
		{name: "config without version", binaryVersion: "1.2.0", configVersion: ""},
		{name: "development build", binaryVersion: "main", configVersion: "3.0.0"},
		{name: "config targets main", binaryVersion: "1.2.0", configVersion: "main"},
		{
			name:          "minor differs",
			binaryVersion: "1.3.0",
			configVersion: "1.2.0",
			expectError:   true,
			errorContains: "minor version mismatch",
		},
		{
			name:          "major differs",
			binaryVersion: "2.0.0",
			configVersion: "1.2.0",
			expectError:   true,
			errorContains: "major version mismatch",
		},
		{
			name:          "invalid config version",
			binaryVersion: "1.2.0",
			configVersion: "latest",
			expectError:   true,
			errorContains: "invalid config version",
		},
		{
			name:          "invalid binary version",
			binaryVersion: "nightly",
			configVersion: "1.2.0",
			expectError:   true,
			errorContains: "invalid binary version",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckConfigCompatibility(tc.binaryVersion, tc.configVersion)
			if tc.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errorContains)

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestGetVersion(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	Version = "1.4.2"
	assert.Equal(t, "1.4.2", GetVersion())
}
