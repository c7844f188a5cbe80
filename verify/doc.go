// Package verify implements the verification cascade: the staged
// resolution of a claim through the response cache, live web evidence,
// the structured article store, corpus vector retrieval and finally
// generative synthesis. Every accepted question produces a result; the
// stages differ only in how much supporting evidence backs it.
package verify
