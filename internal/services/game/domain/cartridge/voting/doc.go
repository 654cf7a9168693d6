// Package voting implements the elimination vote mechanisms.
//
// Every mechanism shares one Ballot state value. The mechanism id selects the
// eligibility filter, accepted actions, completion guard and resolution rule
// from a closed table, so a restored Ballot needs nothing but its JSON.
//
// Ties are broken by lowest current silver, then by the first tied id in
// sorted order. Shield breaks its low-count tie at random. Finals breaks a
// winner tie by highest silver, then at random.
package voting
