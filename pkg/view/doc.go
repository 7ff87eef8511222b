// Package view contains engine.ViewFactory implementations.
//
// Views find the user event in request parameters: either "_eventId=submit" or a button
// named "_eventId_submit".
package view
