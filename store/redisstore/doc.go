// Package redisstore implements authsystem.UserStore on Redis.
//
// # Key layout
//
//	{prefix}:user:{id}       hash with the record fields
//	{prefix}:email:{email}   id, the uniqueness index
//	{prefix}:token:{token}   id of the account holding that confirmation token
//	{prefix}:user_seq        id sequence
//
// # What this package must NOT do
//
//   - Mutate a record outside a Lua script.
//   - Treat a stale token index entry as a match.
//
// Scripts build user and token keys from ARGV, so all keys of one store must
// land on the same node. Use a single instance or a hash-tagged prefix such as
// "{as}" on Redis Cluster.
package redisstore
