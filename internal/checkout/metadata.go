package checkout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/shopvia/shopvia-backend/pkg/errors"
)

// Session metadata rides on the provider order and comes back verbatim on
// the completion webhook. The version key lets the finalizer reject
// payloads written by an incompatible deploy instead of misreading them.
const (
	metadataVersion = "1"

	metaKeyVersion   = "sv_version"
	metaKeyUserID    = "sv_user_id"
	metaKeyAddressID = "sv_address_id"
	metaKeyOrderIDs  = "sv_order_ids"
	metaKeyTotal     = "sv_total"
	metaKeyPoints    = "sv_points"
)

// SessionMetadata carries everything the webhook finalizer needs to settle
// a provisional batch without trusting any other webhook field.
type SessionMetadata struct {
	UserID      uuid.UUID
	AddressID   uuid.UUID
	OrderIDs    []uuid.UUID
	TotalAmount int64
	PointsToUse int64
}

// Encode flattens the metadata into the provider's string map.
func (m SessionMetadata) Encode() map[string]string {
	ids := make([]string, 0, len(m.OrderIDs))
	for _, id := range m.OrderIDs {
		ids = append(ids, id.String())
	}
	return map[string]string{
		metaKeyVersion:   metadataVersion,
		metaKeyUserID:    m.UserID.String(),
		metaKeyAddressID: m.AddressID.String(),
		metaKeyOrderIDs:  strings.Join(ids, ","),
		metaKeyTotal:     strconv.FormatInt(m.TotalAmount, 10),
		metaKeyPoints:    strconv.FormatInt(m.PointsToUse, 10),
	}
}

// DecodeSessionMetadata parses the provider map back into typed metadata.
func DecodeSessionMetadata(raw map[string]string) (SessionMetadata, error) {
	var meta SessionMetadata
	if len(raw) == 0 {
		return meta, pkgerrors.New(pkgerrors.CodeValidation, "session metadata missing")
	}
	if version := raw[metaKeyVersion]; version != metadataVersion {
		return meta, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unsupported session metadata version %q", version))
	}

	userID, err := uuid.Parse(raw[metaKeyUserID])
	if err != nil {
		return meta, pkgerrors.New(pkgerrors.CodeValidation, "session metadata has invalid user id")
	}
	addressID, err := uuid.Parse(raw[metaKeyAddressID])
	if err != nil {
		return meta, pkgerrors.New(pkgerrors.CodeValidation, "session metadata has invalid address id")
	}

	rawIDs := strings.Split(raw[metaKeyOrderIDs], ",")
	orderIDs := make([]uuid.UUID, 0, len(rawIDs))
	for _, rawID := range rawIDs {
		trimmed := strings.TrimSpace(rawID)
		if trimmed == "" {
			continue
		}
		id, err := uuid.Parse(trimmed)
		if err != nil {
			return meta, pkgerrors.New(pkgerrors.CodeValidation, "session metadata has invalid order id")
		}
		orderIDs = append(orderIDs, id)
	}
	if len(orderIDs) == 0 {
		return meta, pkgerrors.New(pkgerrors.CodeValidation, "session metadata has no order ids")
	}

	total, err := strconv.ParseInt(raw[metaKeyTotal], 10, 64)
	if err != nil || total < 0 {
		return meta, pkgerrors.New(pkgerrors.CodeValidation, "session metadata has invalid total")
	}
	points, err := strconv.ParseInt(raw[metaKeyPoints], 10, 64)
	if err != nil || points < 0 {
		return meta, pkgerrors.New(pkgerrors.CodeValidation, "session metadata has invalid points")
	}

	meta.UserID = userID
	meta.AddressID = addressID
	meta.OrderIDs = orderIDs
	meta.TotalAmount = total
	meta.PointsToUse = points
	return meta, nil
}
