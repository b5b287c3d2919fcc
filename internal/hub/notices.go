package hub

import (
	"fmt"

	"lanhub/internal/fileshare"
)

func formatPresenterLine(pid uint32) string {
	return fmt.Sprintf("PRESENTER:%d", pid)
}

func formatFileOffer(f *fileshare.File) string {
	return fmt.Sprintf("FILE_OFFER:%d:%s:%d:%s:%d", f.ID, f.Filename, f.Size, f.UploaderUsername, f.UploaderID)
}

func formatFileDeleted(fileID uint64) string {
	return fmt.Sprintf("FILE_DELETED:%d", fileID)
}

func formatChat(senderID uint32, username, timestamp, text string) string {
	return fmt.Sprintf("CHAT:%d:%s:%s:%s", senderID, username, timestamp, text)
}

func formatPrivateChat(senderID uint32, username, timestamp, csvIDs, text string) string {
	return fmt.Sprintf("PRIVATE_CHAT:%d|%s|%s|%s|%s", senderID, username, timestamp, csvIDs, text)
}
