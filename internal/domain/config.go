package domain

// KeyPrefix namespaces all querymem keys in the store.
const KeyPrefix = "querymem:"

// Collection is the single logical collection holding query records.
const Collection = "queries"
