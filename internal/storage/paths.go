package storage

import (
	"fmt"

	"custodian/internal/types"
)

// RemoteKey builds the object locator for an artifact:
// <componentKind>/<scheduleClass>/<name>.<ext>.enc
func RemoteKey(kind types.ComponentKind, class types.ScheduleClass, name, ext string) string {
	return fmt.Sprintf("%s/%s/%s.%s.enc", kind, class, name, ext)
}
