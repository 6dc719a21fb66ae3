package registry

import (
	"fmt"
	"sort"
)

// builtin is the process-wide descriptor table. Entries are constants; the
// registry never mutates them after init.
var builtin = map[string]*Descriptor{
	"segment_group": {
		Kind:              "segment_group",
		Endpoints:         Endpoints{List: "/segmentGroup"},
		Lookup:            LookupNameUnique,
		RequiredForCreate: []string{"name"},
		RefFields:         map[string]string{"application_ids": "applications"},
		// Application membership is managed from the application-segment
		// side; it never participates in segment-group drift.
		Excluded: []string{"applications", "application_ids"},
	},
	"application_segment": {
		Kind:      "application_segment",
		Endpoints: Endpoints{
			List:          "/application",
			BulkDelete:    "/application/bulkDelete",
			BulkDeleteKey: "applicationIds",
		},
		Lookup:    LookupNameUnique,
		RequiredForCreate: []string{
			"name", "domain_names", "segment_group_id",
		},
		RefFields: map[string]string{
			"server_group_ids": "serverGroups",
		},
		EnumFields: []string{"health_reporting", "icmp_access_type", "bypass_type"},
		SetFields:  []string{"domain_names", "tcp_port_ranges", "udp_port_ranges"},
		Excluded:   []string{"segment_group_name"},
	},
	"server_group": {
		Kind:              "server_group",
		Endpoints:         Endpoints{List: "/serverGroup"},
		Lookup:            LookupNameUnique,
		RequiredForCreate: []string{"name", "app_connector_group_ids"},
		RefFields: map[string]string{
			"app_connector_group_ids": "appConnectorGroups",
			"server_ids":              "servers",
		},
		Excluded: []string{"applications"},
	},
	"app_connector_group": {
		Kind:              "app_connector_group",
		Endpoints:         Endpoints{List: "/appConnectorGroup"},
		Lookup:            LookupNameUnique,
		RequiredForCreate: []string{"name", "latitude", "longitude", "location"},
		EnumFields:        []string{"upgrade_day", "dns_query_type"},
		Excluded:          []string{"connectors", "geolocation_id"},
	},
	"service_edge_group": {
		Kind:              "service_edge_group",
		Endpoints:         Endpoints{List: "/serviceEdgeGroup"},
		Lookup:            LookupNameUnique,
		RequiredForCreate: []string{"name", "latitude", "longitude", "location"},
		RefFields: map[string]string{
			"service_edge_ids":    "serviceEdges",
			"trusted_network_ids": "trustedNetworks",
		},
		EnumFields: []string{"upgrade_day"},
		Excluded:   []string{"geolocation_id"},
	},
	"application_server": {
		Kind:              "application_server",
		Endpoints:         Endpoints{List: "/server"},
		Lookup:            LookupNameUnique,
		RequiredForCreate: []string{"name", "address"},
		// appServerGroupIds is a plain id array on the wire, unlike the
		// expanded [{id}] object sequences of the other group relations.
		SetFields: []string{"app_server_group_ids"},
	},
	"provisioning_key": {
		Kind:              "provisioning_key",
		Endpoints:         Endpoints{List: "/associationType/{qualifier}/provisioningKey"},
		QualifierField:    "association_type",
		Lookup:            LookupCompound,
		RequiredForCreate: []string{"name", "association_type", "max_usage", "enrollment_cert_id"},
		EnumFields:        []string{"association_type"},
		Excluded:          []string{"provisioning_key", "enrollment_cert_name", "zcomponent_name"},
	},
	"ba_certificate": {
		Kind:              "ba_certificate",
		Endpoints:         Endpoints{List: "/clientlessCertificate"},
		Lookup:            LookupNameUnique,
		RequiredForCreate: []string{"name", "cert_blob"},
		Excluded:          []string{"cert_blob", "valid_from_in_epoch_sec", "valid_to_in_epoch_sec", "issued_by", "issued_to", "serial_no", "status"},
	},
	"posture_profile": {
		Kind:      "posture_profile",
		Endpoints: Endpoints{List: "/posture"},
		Lookup:    LookupNameUnique,
		ReadOnly:  true,
	},
	"trusted_network": {
		Kind:      "trusted_network",
		Endpoints: Endpoints{List: "/network"},
		Lookup:    LookupNameUnique,
		ReadOnly:  true,
	},
	"pra_portal": {
		Kind:              "pra_portal",
		Endpoints:         Endpoints{List: "/praPortal"},
		Lookup:            LookupNameUnique,
		RequiredForCreate: []string{"name", "domain", "certificate_id"},
		Excluded:          []string{"certificate_name", "c_name"},
	},
	"pra_credential": {
		Kind:              "pra_credential",
		Endpoints:         Endpoints{List: "/credential"},
		Lookup:            LookupNameUnique,
		RequiredForCreate: []string{"name", "credential_type"},
		EnumFields:        []string{"credential_type"},
		// Secrets are write-only on the wire and never reported back, so
		// they cannot participate in drift comparison.
		Excluded: []string{"password", "private_key", "passphrase"},
	},
	"policy_access_rule": {
		Kind:              "policy_access_rule",
		Endpoints:         policyRuleEndpoints,
		Lookup:            LookupCompound,
		PolicyType:        "ACCESS_POLICY",
		RequiredForCreate: []string{"name", "action"},
		EnumFields:        []string{"action", "operator"},
		Excluded:          policyRuleExcluded,
	},
	"policy_timeout_rule": {
		Kind:              "policy_timeout_rule",
		Endpoints:         policyRuleEndpoints,
		Lookup:            LookupCompound,
		PolicyType:        "TIMEOUT_POLICY",
		RequiredForCreate: []string{"name", "action"},
		EnumFields:        []string{"action", "operator"},
		Excluded:          policyRuleExcluded,
	},
	"policy_forwarding_rule": {
		Kind:              "policy_forwarding_rule",
		Endpoints:         policyRuleEndpoints,
		Lookup:            LookupCompound,
		PolicyType:        "CLIENT_FORWARDING_POLICY",
		RequiredForCreate: []string{"name", "action"},
		EnumFields:        []string{"action", "operator"},
		Excluded:          policyRuleExcluded,
	},
	"policy_isolation_rule": {
		Kind:              "policy_isolation_rule",
		Endpoints:         policyRuleEndpoints,
		Lookup:            LookupCompound,
		PolicyType:        "ISOLATION_POLICY",
		RequiredForCreate: []string{"name", "action", "zpn_isolation_profile_id"},
		EnumFields:        []string{"action", "operator"},
		Excluded:          policyRuleExcluded,
	},
}

// policyRuleEndpoints are shared by every policy rule flavor; the policy set
// id is resolved per policy type and substituted at call time.
var policyRuleEndpoints = Endpoints{
	List:        "/policySet/{qualifier}/rule",
	BulkReorder: "/policySet/{qualifier}/reorder",
}

// policyRuleExcluded extends the server-managed exclusions for rules. Rule
// conditions are order-significant and compared as-is; the expanded operand
// names are server decoration.
var policyRuleExcluded = []string{
	"rule_order", "policy_set_id", "policy_type", "zpn_cbi_profile_id",
}

// Describe returns the descriptor for a kind, or a precondition error when
// the kind is not registered.
func Describe(kind string) (*Descriptor, error) {
	d, ok := builtin[kind]
	if !ok {
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
	return d, nil
}

// Kinds returns the registered kind names in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(builtin))
	for k := range builtin {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
