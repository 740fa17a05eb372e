package hub

// Observer is notified about membership changes. The metrics adapter implements it.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	RoomCreated()
	RoomDeleted()
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) ConnectionOpened() {}
func (NopObserver) ConnectionClosed() {}
func (NopObserver) RoomCreated()      {}
func (NopObserver) RoomDeleted()      {}
