/*
Package session serializes access to conversations.

It provides the locking the flow execution repository relies on to keep at most one
writer per conversation across goroutines and, with a distributed locker, across
replicas, around a ports.ConversationStore.
*/
package session
