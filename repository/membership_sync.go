package repository

import (
	"context"
	"fmt"
)

// SyncAllMemberships, src'deki her sohbetin üye setini dst'ye yazar ve
// senkronlanan sohbet sayısını döner. Başlangıçta mirror'ı doldurmak için.
func SyncAllMemberships(ctx context.Context, src ConversationRepository, dst MembershipMirror) (int, error) {
	ids, err := src.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	for i, id := range ids {
		members, err := src.MemberUserIDs(ctx, id)
		if err != nil {
			return i, err
		}
		if err := dst.SyncConversation(ctx, id, members); err != nil {
			return i, fmt.Errorf("failed to sync conversation %s: %w", id, err)
		}
	}
	return len(ids), nil
}
