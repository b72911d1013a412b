package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/yairfalse/muisti/types"
	"github.com/yairfalse/muisti/wal"
)

// storedAnnotation anchors an annotation to its (node, sample time)
// coordinate in storage.
type storedAnnotation struct {
	NodeID     string           `json:"node_id"`
	SampleTime time.Time        `json:"sample_time"`
	Annotation types.Annotation `json:"annotation"`
}

// AddAnnotation attaches a free-text note to a (node, timestamp)
// coordinate. The key includes the creation instant so multiple
// annotations can exist at the same sample. Annotations are additive
// only; nothing in the engine mutates or deletes them.
func (e *Engine) AddAnnotation(ctx context.Context, nodeID string, sampleTime time.Time, annotation types.Annotation) error {
	if err := validateNodeID(nodeID); err != nil {
		return fmt.Errorf("annotation: %w", err)
	}
	if annotation.Note == "" {
		return fmt.Errorf("annotation missing note")
	}
	if annotation.Timestamp.IsZero() {
		annotation.Timestamp = e.now()
	}

	key := annotationKey(nodeID, sampleTime, e.now().UnixNano())
	record := storedAnnotation{NodeID: nodeID, SampleTime: sampleTime, Annotation: annotation}

	if err := e.store.Store(ctx, key, record); err != nil {
		return fmt.Errorf("failed to store annotation for node %s: %w", nodeID, err)
	}

	e.journal(ctx, wal.EntryAnnotationAdded, key, record)
	e.logger.LogIngest(ctx, "annotation", key, nodeID)
	return nil
}

// GetAnnotations returns annotations attached to a node's samples within
// [startTime, endTime].
func (e *Engine) GetAnnotations(ctx context.Context, nodeID string, startTime, endTime time.Time) ([]types.Annotation, error) {
	keys, err := e.store.Scan(ctx, annotationNodePrefix(nodeID))
	if err != nil {
		return nil, fmt.Errorf("failed to scan annotations for node %s: %w", nodeID, err)
	}

	var annotations []types.Annotation
	for _, key := range keys {
		var record storedAnnotation
		if err := e.store.Retrieve(ctx, key, &record); err != nil {
			return nil, fmt.Errorf("failed to retrieve %s: %w", key, err)
		}
		if !startTime.IsZero() && record.SampleTime.Before(startTime) {
			continue
		}
		if !endTime.IsZero() && record.SampleTime.After(endTime) {
			continue
		}
		annotations = append(annotations, record.Annotation)
	}
	return annotations, nil
}
