// Package config translates CLI flags into component configurations.
package config

import (
	"policy-recovery-service/internal/parsers"
	"policy-recovery-service/internal/recovery"
	"policy-recovery-service/internal/reporter"
)

// CreateServiceConfig builds the full pipeline configuration from CLI
// overrides. An empty policyColumn keeps the standard extract headers.
func CreateServiceConfig(policyColumn string, graceDays int) *recovery.ServiceConfig {
	return &recovery.ServiceConfig{
		Dashboard: CreateDashboardConfig(policyColumn),
		Batch:     CreateBatchConfig(policyColumn),
		Engine:    &recovery.EngineConfig{GraceDays: graceDays},
	}
}

// CreateReportConfig builds the report configuration for the selected
// output format.
func CreateReportConfig(format string, denylist []string) *reporter.Config {
	config := reporter.DefaultConfig()

	switch format {
	case "text":
		config.Format = reporter.FormatText
	default:
		config.Format = reporter.FormatCSV
	}

	if denylist != nil {
		config.Denylist = denylist
	}

	return config
}

// CreateDashboardConfig builds a dashboard parser configuration with an
// optional policy-column override. Exposed for hosts that use the parsers
// directly rather than through the service.
func CreateDashboardConfig(policyColumn string) *parsers.DashboardConfig {
	config := parsers.DefaultDashboardConfig()
	if policyColumn != "" {
		config.Columns.PolicyNumber = policyColumn
	}
	return config
}

// CreateBatchConfig builds a batch parser configuration with an optional
// policy-column override.
func CreateBatchConfig(policyColumn string) *parsers.BatchConfig {
	config := parsers.DefaultBatchConfig()
	if policyColumn != "" {
		config.PolicyNumberColumn = policyColumn
	}
	return config
}
