package mocks

//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/kjannette/trahn-journal/internal/journal Store,Notifier
