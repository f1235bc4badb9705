package domain

import "strings"

func CollectionPath(kind Kind) (string, error) {
	switch kind {
	case KindChange:
		return "/changes", nil
	case KindAnnouncement:
		return "/announcements", nil
	}
	return "", ErrUnknownKind
}

func ObjectPath(kind Kind, id string) (string, error) {
	collection, err := CollectionPath(kind)
	if err != nil {
		return "", err
	}
	return collection + "/" + id, nil
}

// ParentPath strips the last segment: /changes/42 -> /changes.
func ParentPath(path string) string {
	trimmed := strings.TrimRight(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 {
		return trimmed
	}
	return trimmed[:idx]
}

func ParseKind(s string) (Kind, error) {
	switch strings.TrimSuffix(strings.ToLower(s), "s") {
	case string(KindChange):
		return KindChange, nil
	case string(KindAnnouncement):
		return KindAnnouncement, nil
	}
	return "", ErrUnknownKind
}
