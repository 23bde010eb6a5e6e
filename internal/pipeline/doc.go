// Package pipeline runs link checks for several start URLs.
//
// Each start URL gets its own checker, so registries and tallies never mix
// between sites. A BatchProcessor bounds how many checks run at the same
// time; inside one check the fetch limit still applies.
package pipeline
