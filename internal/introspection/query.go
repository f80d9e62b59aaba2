package introspection

// Query is the fixed introspection document sent to the backend. The ofType
// nesting depth bounds how deeply wrapped a type can be before unwrapping
// silently stops; four levels covers every wrapper combination the backend
// emits (e.g. [String!]!). The extensions selection is nonstandard; Fetch
// falls back to BaseQuery for backends that reject it.
const Query = `
query IntrospectionQuery {
  __schema {
    queryType { name }
    types {
      kind
      name
      fields {
        name
        type {
          kind
          name
          ofType {
            kind
            name
            ofType {
              kind
              name
              ofType {
                kind
                name
              }
            }
          }
        }
        extensions {
          relation {
            displayField
            embedded
            connectionField
          }
          stateMachine
        }
      }
      enumValues {
        name
      }
    }
  }
}
`

// BaseQuery is the standard introspection document without the extensions
// selection. Schemas fetched with it carry no relation or state-machine
// metadata, so relation display fields fall back to naming heuristics.
const BaseQuery = `
query IntrospectionQuery {
  __schema {
    queryType { name }
    types {
      kind
      name
      fields {
        name
        type {
          kind
          name
          ofType {
            kind
            name
            ofType {
              kind
              name
              ofType {
                kind
                name
              }
            }
          }
        }
      }
      enumValues {
        name
      }
    }
  }
}
`
