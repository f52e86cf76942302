// Package api is the GraphQL façade described in spec.md §4.7/§6: an
// indexes query, a createIndex mutation, and a notifications subscription
// that mirrors the bus onto a GraphQL client. It is a thin translation
// layer — the query and the mutation delegate to store.Store or
// driver.RunIndex, the subscription reads the bus directly, and none of them
// holds FSM logic of its own.
//
// graph-gophers/graphql-go is used rather than gqlgen: its schema-string-
// plus-resolver-struct model needs no generated code, which matters because
// none of this module is ever compiled as part of authoring it.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package api

const schemaString = `
schema {
	query: Query
	mutation: Mutation
	subscription: Subscription
}

type Query {
	indexes: MultiIndexesResponse!
}

type Mutation {
	createIndex(index: IndexRequest!): IndexResponse!
}

type Subscription {
	notifications: IndexStatusUpdate!
}

input IndexRequest {
	indexType: String!
	dataSource: String!
	region: String!
}

type Index {
	indexId: ID!
	indexType: String!
	dataSource: String!
	region: String!
	status: String!
	createdAt: String!
	updatedAt: String!
}

type IndexResponse {
	index: Index!
}

type MultiIndexesResponse {
	indexes: [Index!]!
	indexesCount: Int!
}

type IndexStatusUpdate {
	indexId: ID!
	status: String!
}
`
