package secret

import (
	"encoding/json"

	"github.com/amd-eai/airm/internal/model"
)

// injectHuggingFaceLabel implements spec §4.8 "Huggingface tokens": a
// project-scoped Kubernetes secret with use-case HUGGING_FACE has label
// airm.silogen.com/use-case=hugging_face injected server-side before being
// shipped. The manifest is treated as an opaque JSON object with an
// optional "metadata.labels" map, matching the shape the dispatcher applies
// directly as a Kubernetes Secret.
func injectHuggingFaceLabel(manifest []byte) []byte {
	var doc map[string]interface{}

	if len(manifest) == 0 {
		doc = map[string]interface{}{}
	} else if err := json.Unmarshal(manifest, &doc); err != nil {
		return manifest
	}

	metadata, _ := doc["metadata"].(map[string]interface{})
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	labels, _ := metadata["labels"].(map[string]interface{})
	if labels == nil {
		labels = map[string]interface{}{}
	}

	labels[model.HuggingFaceUseCaseLabel] = model.HuggingFaceUseCaseLabelValue
	metadata["labels"] = labels
	doc["metadata"] = metadata

	out, err := json.Marshal(doc)
	if err != nil {
		return manifest
	}

	return out
}
