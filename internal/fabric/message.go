package fabric

import (
	"encoding/json"
	"errors"
	"time"
)

// MessageType discriminates the JSON union of spec §4.1. Validators must
// reject unknown types (spec §6): ParseEnvelope below does exactly that.
type MessageType string

const (
	TypeHeartbeat                     MessageType = "heartbeat"
	TypeClusterNodes                  MessageType = "cluster_nodes"
	TypeClusterQuotasAllocation       MessageType = "cluster_quotas_allocation"
	TypeClusterQuotasStatus           MessageType = "cluster_quotas_status"
	TypeClusterQuotasFailure          MessageType = "cluster_quotas_failure"
	TypeWorkloadCreate                MessageType = "workload_create"
	TypeWorkloadStatusUpdate          MessageType = "workload_status_update"
	TypeWorkloadComponentStatusUpdate MessageType = "workload_component_status_update"
	TypeDeleteWorkload                MessageType = "delete_workload"
	TypeProjectNamespaceCreate        MessageType = "project_namespace_create"
	TypeProjectNamespaceDelete        MessageType = "project_namespace_delete"
	TypeProjectNamespaceStatus        MessageType = "project_namespace_status"
	TypeProjectSecretsCreate          MessageType = "project_secrets_create"
	TypeProjectSecretsDelete          MessageType = "project_secrets_delete"
	TypeProjectSecretsUpdate          MessageType = "project_secrets_update"
	TypeProjectS3StorageCreate        MessageType = "project_s3_storage_create"
	TypeProjectStorageDelete          MessageType = "project_storage_delete"
	TypeProjectStorageUpdate          MessageType = "project_storage_update"
	TypeAutoDiscoveredWorkloadComponent MessageType = "auto_discovered_workload_component"
	TypeAIMClusterModels              MessageType = "aim_cluster_models"
)

// knownTypes is the exhaustive set ParseEnvelope validates against (spec §6
// "validators must reject unknown types").
var knownTypes = map[MessageType]bool{
	TypeHeartbeat: true, TypeClusterNodes: true, TypeClusterQuotasAllocation: true,
	TypeClusterQuotasStatus: true, TypeClusterQuotasFailure: true, TypeWorkloadCreate: true,
	TypeWorkloadStatusUpdate: true,
	TypeWorkloadComponentStatusUpdate: true, TypeDeleteWorkload: true,
	TypeProjectNamespaceCreate: true, TypeProjectNamespaceDelete: true, TypeProjectNamespaceStatus: true,
	TypeProjectSecretsCreate: true, TypeProjectSecretsDelete: true, TypeProjectSecretsUpdate: true,
	TypeProjectS3StorageCreate: true, TypeProjectStorageDelete: true, TypeProjectStorageUpdate: true,
	TypeAutoDiscoveredWorkloadComponent: true, TypeAIMClusterModels: true,
}

// ErrUnknownMessageType is returned by ParseEnvelope for any message_type
// not in the declared union (spec §6).
var ErrUnknownMessageType = errors.New("unknown message_type")

// Envelope is the common header every message carries. Every status
// message carries UpdatedAt (spec §4.1); Envelope carries it unconditionally
// since every message in the union either needs it or tolerates its
// absence (zero value) harmlessly.
type Envelope struct {
	MessageType MessageType     `json:"message_type"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Body        json.RawMessage `json:"-"`
}

// rawEnvelope holds just the message_type/updated_at header fields, without
// Envelope's Body, for ParseEnvelope's first-pass unmarshal.
type rawEnvelope struct {
	MessageType MessageType `json:"message_type"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ParseEnvelope decodes the message_type/updated_at header and validates
// the type is a member of the declared union, returning the full raw body
// for a second-pass unmarshal into the concrete payload type.
func ParseEnvelope(data []byte) (Envelope, error) {
	var raw rawEnvelope

	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, err
	}

	if !knownTypes[raw.MessageType] {
		return Envelope{}, ErrUnknownMessageType
	}

	return Envelope{MessageType: raw.MessageType, UpdatedAt: raw.UpdatedAt, Body: data}, nil
}

// Encode marshals a concrete payload with its message_type tag merged in,
// so Publish(Decode(Encode(x))) round-trips (spec §8 invariant 7). Payload
// must marshal to a JSON object; its `message_type` key is set (or
// overwritten) from messageType.
func Encode(messageType MessageType, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}

	tag, err := json.Marshal(messageType)
	if err != nil {
		return nil, err
	}

	fields["message_type"] = tag

	return json.Marshal(fields)
}

// Decode unmarshals the envelope's raw body into a concrete payload type.
func Decode(e Envelope, v interface{}) error {
	return json.Unmarshal(e.Body, v)
}
