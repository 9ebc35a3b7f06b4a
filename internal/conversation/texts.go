package conversation

import (
	"fmt"

	"github.com/m3rciful/tripbot/internal/fleet"
)

const (
	textWelcome         = "Willkommen beim Transport-Helfer!\n\nBitte wählen Sie Ihren LKW:"
	textChooseTruck     = "Bitte wählen Sie Ihren LKW über die Buttons:"
	textChooseEvent     = "Bitte wählen Sie einen Vorgang über die Buttons:"
	textLocationPrompt  = "Bitte teilen Sie Ihren aktuellen Standort:"
	textNoLocation      = "Kein Standort empfangen.\nBitte teilen Sie Ihren Standort über den Button:"
	textWeightPrompt    = "Standort empfangen.\nBitte geben Sie nun das aktuelle Gewicht in Tonnen ein:"
	textWeightAgain     = "Bitte geben Sie das aktuelle Gewicht in Tonnen ein:"
	textOdometerAgain   = "Bitte geben Sie den Kilometerstand als Zahl ein:"
	textCancelled       = "Vorgang abgebrochen."
	textNoSession       = "Keine aktive Fahrt. Starten Sie eine neue Fahrt mit /start."
	textSaveFailed      = "⚠️ Die Daten konnten nicht gespeichert werden. Bitte senden Sie das Gewicht erneut."
	textFleetLookupFail = "⚠️ Der letzte Kilometerstand konnte nicht geprüft werden. Bitte geben Sie den Kilometerstand erneut ein:"
)

func textTruckChosen(truck fleet.Truck, tripID string) string {
	return fmt.Sprintf("Sie haben %s gewählt.\nIhre Trip-ID: %s\n\nBitte wählen Sie einen Vorgang:", truck.Label(), tripID)
}

func textSaved(r fleet.Reading) string {
	return fmt.Sprintf("Folgende Daten wurden gespeichert:\nLKW: %s\nVorgang: %s\nKilometer: %d\nStandort: %s\nGewicht: %s Tonnen\nZeit: %s\nTrip-ID: %s\n\nBitte wählen Sie den nächsten Vorgang oder beenden Sie die Fahrt:",
		r.Truck, r.Event, r.Odometer, r.LocationText(), fleet.FormatWeight(r.Weight), r.Timestamp(), r.TripID)
}

func textTripEnded(truck fleet.Truck, tripID string) string {
	return fmt.Sprintf("Fahrt beendet für %s.\nTrip-ID: %s\nVielen Dank!\nStarten Sie eine neue Fahrt mit /start.", truck.Label(), tripID)
}
